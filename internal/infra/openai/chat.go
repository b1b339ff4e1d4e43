package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-intel/internal/application"
	"voice-intel/internal/domain"
	"voice-intel/internal/infra"
)

const DefaultAnalysisModel = "gpt-4.1-2025-04-14"

type ChatAnalyzer struct {
	client    *goopenai.Client
	model     string
	maxTokens int
	retry     infra.RetryConfig
}

func NewChatAnalyzer(opts Options, model string, maxTokens int) *ChatAnalyzer {
	if model == "" {
		model = DefaultAnalysisModel
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &ChatAnalyzer{
		client:    newClient(opts),
		model:     model,
		maxTokens: maxTokens,
		retry:     opts.Retry,
	}
}

func (c *ChatAnalyzer) Analyze(ctx context.Context, text string, temperature float64) (domain.Analysis, error) {
	if err := application.ValidateTemperature(temperature); err != nil {
		return nil, err
	}

	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: application.AnalysisSystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: application.AnalysisUserMessage(text)},
		},
		Temperature: requestTemperature(temperature),
		MaxTokens:   c.maxTokens,
	}

	var resp goopenai.ChatCompletionResponse
	err := infra.WithRetry(ctx, c.retry, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return classify("chat", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from chat completion")
	}

	analysis, err := domain.ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}

	return analysis, nil
}

// Temperature is omitempty in the request type, so zero would fall back to the
// service default of 1.0.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

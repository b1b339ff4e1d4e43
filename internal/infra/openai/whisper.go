package openai

import (
	"context"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-intel/internal/infra"
)

type WhisperClient struct {
	client *goopenai.Client
	model  string
	retry  infra.RetryConfig
}

func NewWhisperClient(opts Options, model string) *WhisperClient {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &WhisperClient{
		client: newClient(opts),
		model:  model,
		retry:  opts.Retry,
	}
}

// Transcribe uploads the file at path; the service infers the format from its extension.
func (c *WhisperClient) Transcribe(ctx context.Context, path string) (string, error) {
	var text string

	err := infra.WithRetry(ctx, c.retry, func() error {
		resp, err := c.client.CreateTranscription(ctx, goopenai.AudioRequest{
			Model:    c.model,
			FilePath: path,
		})
		if err != nil {
			return classify("whisper", err)
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

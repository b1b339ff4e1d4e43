package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-intel/internal/application"
	"voice-intel/internal/domain"
	"voice-intel/internal/infra"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	// The assistant turn is prefilled with an opening brace so the reply
	// continues a JSON object instead of starting with prose.
	prefill = "{"
)

// ClaudeAnalyzer runs transcript analysis on the Messages API.
type ClaudeAnalyzer struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	retry      infra.RetryConfig
}

func NewClaudeAnalyzer(apiKey, model string, maxTokens int, timeout time.Duration) *ClaudeAnalyzer {
	return NewClaudeAnalyzerWithURL(apiKey, model, maxTokens, timeout, defaultBaseURL)
}

func NewClaudeAnalyzerWithURL(apiKey, model string, maxTokens int, timeout time.Duration, baseURL string) *ClaudeAnalyzer {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &ClaudeAnalyzer{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  maxTokens,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *ClaudeAnalyzer) WithRetry(cfg infra.RetryConfig) *ClaudeAnalyzer {
	c.retry = cfg
	return c
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeAnalyzer) Analyze(ctx context.Context, text string, temperature float64) (domain.Analysis, error) {
	if err := application.ValidateTemperature(temperature); err != nil {
		return nil, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: temperature,
		System:      application.AnalysisSystemPrompt,
		Messages: []message{
			{Role: "user", Content: application.AnalysisUserMessage(text)},
			{Role: "assistant", Content: prefill},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var resp messagesResponse
	err = infra.WithRetry(ctx, c.retry, func() error {
		var err error
		resp, err = c.send(ctx, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, errors.New("empty response from claude")
	}

	analysis, err := domain.ParseAnalysis(prefill + sb.String())
	if err != nil {
		if resp.StopReason == "max_tokens" {
			return nil, fmt.Errorf("parsing analysis (reply cut at %d tokens): %w", c.maxTokens, err)
		}
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}
	return analysis, nil
}

func (c *ClaudeAnalyzer) send(ctx context.Context, body []byte) (messagesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return messagesResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return messagesResponse{}, fmt.Errorf("calling claude: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return messagesResponse{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := apiError(resp.StatusCode, raw)
		// 529 is Anthropic's "overloaded" and falls in the 5xx retry range.
		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return messagesResponse{}, infra.Retryable(err)
		}
		return messagesResponse{}, err
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return messagesResponse{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

func apiError(status int, raw []byte) error {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		return fmt.Errorf("claude API error %d %s: %s", status, body.Error.Type, body.Error.Message)
	}
	return fmt.Errorf("claude API error %d: %s", status, strings.TrimSpace(string(raw)))
}

package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrBlocked is returned when Gemini refuses to answer for safety reasons.
var ErrBlocked = errors.New("gemini blocked the request")

// Analyzer runs transcript analysis on the generateContent API in JSON mode.
type Analyzer struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
	retry      infra.RetryConfig
}

func NewAnalyzer(apiKey, model string, maxTokens int, timeout time.Duration) *Analyzer {
	return NewAnalyzerWithURL(apiKey, model, maxTokens, timeout, defaultBaseURL)
}

func NewAnalyzerWithURL(apiKey, model string, maxTokens int, timeout time.Duration, baseURL string) *Analyzer {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Analyzer{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		maxTokens:  maxTokens,
		retry:      infra.DefaultRetryConfig(),
	}
}

func (a *Analyzer) WithRetry(cfg infra.RetryConfig) *Analyzer {
	a.retry = cfg
	return a
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates     []candidate `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (a *Analyzer) Analyze(ctx context.Context, text string, temperature float64) (domain.Analysis, error) {
	if err := application.ValidateTemperature(temperature); err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: content{Parts: []part{{Text: application.AnalysisSystemPrompt}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: application.AnalysisUserMessage(text)}},
		}},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  a.maxTokens,
			Temperature:      temperature,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var resp generateResponse
	err = infra.WithRetry(ctx, a.retry, func() error {
		var err error
		resp, err = a.generate(ctx, body)
		return err
	})
	if err != nil {
		return nil, err
	}

	reply, err := replyText(resp)
	if err != nil {
		return nil, err
	}

	analysis, err := domain.ParseAnalysis(reply)
	if err != nil {
		return nil, fmt.Errorf("parsing analysis: %w", err)
	}
	return analysis, nil
}

func (a *Analyzer) generate(ctx context.Context, body []byte) (generateResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", a.baseURL, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return generateResponse{}, fmt.Errorf("calling gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return generateResponse{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := apiError(resp.StatusCode, raw)
		if infra.IsRetryableHTTPStatus(resp.StatusCode) {
			return generateResponse{}, infra.Retryable(err)
		}
		return generateResponse{}, err
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return generateResponse{}, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}

func apiError(status int, raw []byte) error {
	var body errorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		return fmt.Errorf("gemini API error %d %s: %s", status, body.Error.Status, body.Error.Message)
	}
	return fmt.Errorf("gemini API error %d: %s", status, strings.TrimSpace(string(raw)))
}

// replyText joins the first candidate's parts. A blocked prompt or a candidate
// stopped for safety yields ErrBlocked.
func replyText(resp generateResponse) (string, error) {
	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return "", fmt.Errorf("%w: prompt %s", ErrBlocked, reason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("empty response from gemini")
	}

	first := resp.Candidates[0]
	switch first.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, first.FinishReason)
	}

	var sb strings.Builder
	for _, p := range first.Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("empty response from gemini")
	}
	return sb.String(), nil
}

package openai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"voice-intel/internal/infra"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Retry   infra.RetryConfig
}

func newClient(opts Options) *goopenai.Client {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	return goopenai.NewClientWithConfig(cfg)
}

// classify marks rate limits and server errors as retryable.
func classify(api string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		wrapped := fmt.Errorf("%s API error %d: %w", api, apiErr.HTTPStatusCode, err)
		if infra.IsRetryableHTTPStatus(apiErr.HTTPStatusCode) {
			return infra.Retryable(wrapped)
		}
		return wrapped
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		wrapped := fmt.Errorf("%s request error %d: %w", api, reqErr.HTTPStatusCode, err)
		if infra.IsRetryableHTTPStatus(reqErr.HTTPStatusCode) {
			return infra.Retryable(wrapped)
		}
		return wrapped
	}

	return fmt.Errorf("%s request: %w", api, err)
}

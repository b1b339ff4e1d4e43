package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voice-intel/internal/application"
	"voice-intel/internal/infra"
)

const (
	defaultEndpoint = "https://api.pushover.net/1/messages.json"

	// Pushover rejects messages longer than this many characters.
	maxMessageRunes = 1024
	excerptRunes    = 300
)

// Client sends threat alerts as Pushover notifications. Without credentials it
// does nothing.
type Client struct {
	token      string
	userKey    string
	endpoint   string
	httpClient *http.Client
	retry      infra.RetryConfig
}

func NewClient(token, userKey string) *Client {
	return NewClientWithURL(token, userKey, defaultEndpoint)
}

func NewClientWithURL(token, userKey, endpoint string) *Client {
	return &Client{
		token:      token,
		userKey:    userKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      infra.DefaultRetryConfig(),
	}
}

func (c *Client) WithRetry(cfg infra.RetryConfig) *Client {
	c.retry = cfg
	return c
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func (c *Client) NotifyThreat(ctx context.Context, alert application.ThreatAlert) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	form := alertForm(alert)
	form.Set("token", c.token)
	form.Set("user", c.userKey)

	err := infra.WithRetry(ctx, c.retry, func() error {
		return c.send(ctx, form)
	})
	if err != nil {
		return fmt.Errorf("sending threat alert: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to pushover: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading pushover response: %w", err)
	}

	var result response
	// Error pages from proxies are not JSON; the status code still applies.
	_ = json.Unmarshal(body, &result)

	if resp.StatusCode == http.StatusOK && result.Status == 1 {
		return nil
	}

	reason := strings.Join(result.Errors, "; ")
	if reason == "" {
		reason = strings.TrimSpace(string(body))
	}
	err = fmt.Errorf("pushover status %d: %s", resp.StatusCode, reason)
	if infra.IsRetryableHTTPStatus(resp.StatusCode) {
		return infra.Retryable(err)
	}
	return err
}

// alertForm builds the message fields: high threats get priority 1 and a siren.
func alertForm(alert application.ThreatAlert) url.Values {
	form := url.Values{}
	form.Set("title", fmt.Sprintf("⚠️ Threat detected: %s", strings.ToUpper(alert.Level)))

	var msg strings.Builder
	if alert.Summary != "" {
		msg.WriteString(alert.Summary)
	}
	if alert.Transcript != "" {
		if msg.Len() > 0 {
			msg.WriteString("\n\n")
		}
		fmt.Fprintf(&msg, "%q", truncate(alert.Transcript, excerptRunes))
	}
	if alert.RequestID != "" {
		fmt.Fprintf(&msg, "\n\nrequest %s", alert.RequestID)
	}
	form.Set("message", truncate(msg.String(), maxMessageRunes))

	if strings.EqualFold(alert.Level, "high") {
		form.Set("priority", "1")
		form.Set("sound", "siren")
	} else {
		form.Set("priority", "0")
	}

	return form
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

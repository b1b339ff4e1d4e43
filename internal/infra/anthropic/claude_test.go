package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"voice-intel/internal/domain"
	"voice-intel/internal/infra"
	"voice-intel/internal/infra/anthropic"
)

func fastRetry() infra.RetryConfig {
	return infra.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

// replyContinuing answers as the model would after the "{" prefill.
func replyContinuing(w http.ResponseWriter, stopReason string, blocks ...map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"content":     blocks,
		"stop_reason": stopReason,
	})
}

func TestClaudeAnalyzer_Analyze(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key: got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("anthropic-version header missing")
		}

		var req struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			System      string  `json:"system"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "claude-test" || req.MaxTokens != 300 || req.Temperature != 0.45 {
			t.Errorf("request: model=%q max_tokens=%d temperature=%v", req.Model, req.MaxTokens, req.Temperature)
		}
		if !strings.Contains(req.System, "overall_sentiment") {
			t.Errorf("system prompt: got %q", req.System)
		}
		if len(req.Messages) != 2 || req.Messages[1].Role != "assistant" || req.Messages[1].Content != "{" {
			t.Errorf("messages: got %+v, want user turn plus prefilled assistant turn", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "good morning everyone") {
			t.Errorf("user message: got %q", req.Messages[0].Content)
		}

		replyContinuing(w, "end_turn",
			map[string]string{"type": "text", "text": `"overall_sentiment":"positive","sentiment_score":0.6,`},
			map[string]string{"type": "text", "text": `"summary":"Upbeat greeting.","threat_level":"none"}` + "\nHope this helps."},
		)
	}))
	defer server.Close()

	analyzer := anthropic.NewClaudeAnalyzerWithURL("test-key", "claude-test", 300, 5*time.Second, server.URL)

	analysis, err := analyzer.Analyze(context.Background(), "good morning everyone", 0.45)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if sentiment, _ := analysis.OverallSentiment(); sentiment != "positive" {
		t.Errorf("OverallSentiment: got %q, want positive", sentiment)
	}
	if score, _ := analysis.SentimentScore(); score != 0.6 {
		t.Errorf("SentimentScore: got %v, want 0.6", score)
	}
}

func TestClaudeAnalyzer_Unparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyContinuing(w, "end_turn", map[string]string{"type": "text", "text": "I am unable to comply."})
	}))
	defer server.Close()

	analyzer := anthropic.NewClaudeAnalyzerWithURL("test-key", "", 0, 5*time.Second, server.URL)

	_, err := analyzer.Analyze(context.Background(), "text", 0.3)
	if !errors.Is(err, domain.ErrAnalysisParse) {
		t.Fatalf("error: got %v, want ErrAnalysisParse", err)
	}
}

func TestClaudeAnalyzer_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		replyContinuing(w, "max_tokens", map[string]string{"type": "text", "text": `"overall_sentiment":"neg`})
	}))
	defer server.Close()

	analyzer := anthropic.NewClaudeAnalyzerWithURL("test-key", "", 20, 5*time.Second, server.URL)

	_, err := analyzer.Analyze(context.Background(), "text", 0.3)
	if !errors.Is(err, domain.ErrAnalysisParse) {
		t.Fatalf("error: got %v, want ErrAnalysisParse", err)
	}
	if !strings.Contains(err.Error(), "cut at 20 tokens") {
		t.Errorf("error does not mention truncation: %v", err)
	}
}

func TestClaudeAnalyzer_RetriesOverload(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, 529)
			return
		}
		replyContinuing(w, "end_turn", map[string]string{
			"type": "text",
			"text": `"overall_sentiment":"neutral","sentiment_score":0,"summary":"ok","threat_level":"none"}`,
		})
	}))
	defer server.Close()

	analyzer := anthropic.NewClaudeAnalyzerWithURL("test-key", "", 0, 5*time.Second, server.URL).WithRetry(fastRetry())

	if _, err := analyzer.Analyze(context.Background(), "text", 0.3); err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestClaudeAnalyzer_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	analyzer := anthropic.NewClaudeAnalyzerWithURL("bad", "", 0, 5*time.Second, server.URL).WithRetry(fastRetry())

	_, err := analyzer.Analyze(context.Background(), "text", 0.3)
	if err == nil || !strings.Contains(err.Error(), "invalid x-api-key") {
		t.Fatalf("error: got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
}

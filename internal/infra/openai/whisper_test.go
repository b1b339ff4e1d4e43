package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"voice-intel/internal/infra"
	"voice-intel/internal/infra/openai"
)

func testOptions(baseURL string) openai.Options {
	return openai.Options{
		APIKey:  "test-key",
		BaseURL: baseURL + "/v1",
		Timeout: 5 * time.Second,
		Retry: infra.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2,
		},
	}
}

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF....WAVEfmt audio"), 0o600); err != nil {
		t.Fatalf("writing audio: %v", err)
	}
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization: got %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model: got %q, want whisper-1", got)
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
		} else if !strings.HasSuffix(header.Filename, ".wav") {
			t.Errorf("filename: got %q, want .wav suffix", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"text": " This is a test. "})
	}))
	defer server.Close()

	client := openai.NewWhisperClient(testOptions(server.URL), "")

	text, err := client.Transcribe(context.Background(), writeAudio(t, "clip.wav"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "This is a test." {
		t.Errorf("text: got %q, want %q", text, "This is a test.")
	}
}

func TestWhisperClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "overloaded", "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"text": "hello"})
	}))
	defer server.Close()

	client := openai.NewWhisperClient(testOptions(server.URL), "whisper-1")

	text, err := client.Transcribe(context.Background(), writeAudio(t, "clip.mp3"))
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}
	if text != "hello" {
		t.Errorf("text: got %q, want hello", text)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
}

func TestWhisperClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Invalid file format.", "type": "invalid_request_error"},
		})
	}))
	defer server.Close()

	client := openai.NewWhisperClient(testOptions(server.URL), "")

	_, err := client.Transcribe(context.Background(), writeAudio(t, "clip.wav"))
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "Invalid file format.") {
		t.Errorf("error should carry service message: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls: got %d, want 1", got)
	}
}

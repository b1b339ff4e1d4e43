package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voice-intel/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// clearEnv keeps the developer's shell from leaking into the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"VOICEINTEL_ANALYSIS_PROVIDER", "VOICEINTEL_HTTP_ADDR", "VOICEINTEL_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "openai:\n  api_key: sk-test\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.OpenAI.TranscriptionModel != "whisper-1" {
		t.Errorf("TranscriptionModel: got %q", cfg.OpenAI.TranscriptionModel)
	}
	if cfg.OpenAI.AnalysisModel != "gpt-4.1-2025-04-14" {
		t.Errorf("AnalysisModel: got %q", cfg.OpenAI.AnalysisModel)
	}
	if cfg.OpenAI.Timeout() != 60*time.Second {
		t.Errorf("Timeout: got %v", cfg.OpenAI.Timeout())
	}
	if cfg.Analysis.Provider != "openai" {
		t.Errorf("Provider: got %q", cfg.Analysis.Provider)
	}
	if cfg.Analysis.DefaultTemperature() != 0.3 {
		t.Errorf("DefaultTemperature: got %v", cfg.Analysis.DefaultTemperature())
	}
	if cfg.Analysis.MaxTokens != 300 {
		t.Errorf("MaxTokens: got %d", cfg.Analysis.MaxTokens)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.Pause() != 3*time.Second {
		t.Errorf("Audio: got rate=%d pause=%v", cfg.Audio.SampleRate, cfg.Audio.Pause())
	}
	initial, ceiling := cfg.Retry.Delays()
	if cfg.Retry.MaxAttempts != 3 || initial != 500*time.Millisecond || ceiling != 8*time.Second {
		t.Errorf("Retry: got %d %v %v", cfg.Retry.MaxAttempts, initial, ceiling)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.MaxUploadMB != 25 {
		t.Errorf("HTTP: got %+v", cfg.HTTP)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
}

func TestLoad_ZeroTemperatureKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "openai:\n  api_key: sk-test\nanalysis:\n  temperature: 0\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Analysis.DefaultTemperature() != 0 {
		t.Errorf("DefaultTemperature: got %v, want 0", cfg.Analysis.DefaultTemperature())
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-ant")
	path := writeConfig(t, `
openai:
  api_key: sk-test
analysis:
  provider: Anthropic
anthropic:
  api_key: ${TEST_ANTHROPIC_KEY}
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant" {
		t.Errorf("Anthropic.APIKey: got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Analysis.Provider != "anthropic" {
		t.Errorf("Provider: got %q", cfg.Analysis.Provider)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("VOICEINTEL_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("VOICEINTEL_LOG_LEVEL", "debug")
	path := writeConfig(t, "openai:\n  api_key: sk-file\nhttp:\n  addr: :7000\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("APIKey: got %q, want sk-env", cfg.OpenAI.APIKey)
	}
	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level: got %q", cfg.Log.Level)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Errorf("APIKey: got %q", cfg.OpenAI.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing openai key",
			body: "log:\n  level: info\n",
			want: "openai.api_key",
		},
		{
			name: "unknown provider",
			body: "openai:\n  api_key: k\nanalysis:\n  provider: local\n",
			want: "analysis.provider",
		},
		{
			name: "gemini without key",
			body: "openai:\n  api_key: k\nanalysis:\n  provider: gemini\n",
			want: "gemini.api_key",
		},
		{
			name: "temperature out of range",
			body: "openai:\n  api_key: k\nanalysis:\n  temperature: 1.5\n",
			want: "analysis.temperature",
		},
		{
			name: "bad duration",
			body: "openai:\n  api_key: k\nretry:\n  max_delay: soon\n",
			want: "retry.max_delay",
		},
		{
			name: "pushover without credentials",
			body: "openai:\n  api_key: k\npushover:\n  enabled: true\n",
			want: "pushover.token",
		},
		{
			name: "bad trusted proxy",
			body: "openai:\n  api_key: k\nhttp:\n  trusted_proxies: [\"10.0.0.0/8\", \"proxy.local\"]\n",
			want: "http.trusted_proxies",
		},
		{
			name: "bad log format",
			body: "openai:\n  api_key: k\nlog:\n  format: xml\n",
			want: "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Audio     AudioConfig     `yaml:"audio"`
	HTTP      HTTPConfig      `yaml:"http"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Retry     RetryConfig     `yaml:"retry"`
	Log       LogConfig       `yaml:"log"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
	AnalysisModel      string `yaml:"analysis_model"`
	RequestTimeout     string `yaml:"request_timeout"`
}

type AnalysisConfig struct {
	Provider    string   `yaml:"provider"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AudioConfig struct {
	StagingDir       string `yaml:"staging_dir"`
	SampleRate       int    `yaml:"sample_rate"`
	PauseThreshold   string `yaml:"pause_threshold"`
	MaxDuration      string `yaml:"max_duration"`
	SilenceAmplitude int    `yaml:"silence_amplitude"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	RateLimit      int      `yaml:"rate_limit"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	// TrustedProxies are addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type RetryConfig struct {
	MaxAttempts  int    `yaml:"max_attempts"`
	InitialDelay string `yaml:"initial_delay"`
	MaxDelay     string `yaml:"max_delay"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides are read after the file and win over it.
type envOverrides struct {
	OpenAIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicKey string `envconfig:"ANTHROPIC_API_KEY"`
	GeminiKey    string `envconfig:"GEMINI_API_KEY"`
	Provider     string `envconfig:"VOICEINTEL_ANALYSIS_PROVIDER"`
	HTTPAddr     string `envconfig:"VOICEINTEL_HTTP_ADDR"`
	LogLevel     string `envconfig:"VOICEINTEL_LOG_LEVEL"`
}

// Load builds the configuration from a .env file in the working directory,
// the YAML file at path (skipped when path is empty) and the environment.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if env.OpenAIKey != "" {
		c.OpenAI.APIKey = env.OpenAIKey
	}
	if env.AnthropicKey != "" {
		c.Anthropic.APIKey = env.AnthropicKey
	}
	if env.GeminiKey != "" {
		c.Gemini.APIKey = env.GeminiKey
	}
	if env.Provider != "" {
		c.Analysis.Provider = env.Provider
	}
	if env.HTTPAddr != "" {
		c.HTTP.Addr = env.HTTPAddr
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.AnalysisModel == "" {
		c.OpenAI.AnalysisModel = "gpt-4.1-2025-04-14"
	}
	if c.OpenAI.RequestTimeout == "" {
		c.OpenAI.RequestTimeout = "60s"
	}
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = "openai"
	}
	c.Analysis.Provider = strings.ToLower(c.Analysis.Provider)
	if c.Analysis.Temperature == nil {
		t := 0.3
		c.Analysis.Temperature = &t
	}
	if c.Analysis.MaxTokens == 0 {
		c.Analysis.MaxTokens = 300
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.PauseThreshold == "" {
		c.Audio.PauseThreshold = "3s"
	}
	if c.Audio.MaxDuration == "" {
		c.Audio.MaxDuration = "2m"
	}
	if c.Audio.SilenceAmplitude == 0 {
		c.Audio.SilenceAmplitude = 500
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxUploadMB == 0 {
		c.HTTP.MaxUploadMB = 25
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 10
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 3
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialDelay == "" {
		c.Retry.InitialDelay = "500ms"
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = "8s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks credentials for the selected providers and that every
// duration and numeric setting is usable.
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("openai.api_key is required (or set OPENAI_API_KEY)"))
	}

	switch c.Analysis.Provider {
	case "openai":
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			errs = append(errs, errors.New("anthropic.api_key is required when analysis.provider is anthropic"))
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("gemini.api_key is required when analysis.provider is gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("analysis.provider %q is not one of openai, anthropic, gemini", c.Analysis.Provider))
	}

	if t := c.Analysis.Temperature; t != nil && (*t < 0 || *t > 1) {
		errs = append(errs, fmt.Errorf("analysis.temperature %v is outside [0.0, 1.0]", *t))
	}
	if c.Analysis.MaxTokens < 0 {
		errs = append(errs, errors.New("analysis.max_tokens must be positive"))
	}

	durations := []struct{ field, value string }{
		{"openai.request_timeout", c.OpenAI.RequestTimeout},
		{"audio.pause_threshold", c.Audio.PauseThreshold},
		{"audio.max_duration", c.Audio.MaxDuration},
		{"retry.initial_delay", c.Retry.InitialDelay},
		{"retry.max_delay", c.Retry.MaxDelay},
	}
	for _, d := range durations {
		if v, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.field, err))
		} else if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.field))
		}
	}

	if c.Audio.SilenceAmplitude < 0 || c.Audio.SilenceAmplitude > 32767 {
		errs = append(errs, errors.New("audio.silence_amplitude must be within 0..32767"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, errors.New("pushover.token and pushover.user_key are required when pushover is enabled"))
	}
	for _, p := range c.HTTP.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			errs = append(errs, fmt.Errorf("http.trusted_proxies: %q is not an address or CIDR", p))
		}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Durations below are only read after Validate has accepted them.

func (c OpenAIConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

func (c AudioConfig) Pause() time.Duration {
	d, _ := time.ParseDuration(c.PauseThreshold)
	return d
}

func (c AudioConfig) Cap() time.Duration {
	d, _ := time.ParseDuration(c.MaxDuration)
	return d
}

func (c RetryConfig) Delays() (initial, ceiling time.Duration) {
	initial, _ = time.ParseDuration(c.InitialDelay)
	ceiling, _ = time.ParseDuration(c.MaxDelay)
	return initial, ceiling
}

// DefaultTemperature is the temperature offered before the user picks one.
func (c AnalysisConfig) DefaultTemperature() float64 {
	if c.Temperature == nil {
		return 0.3
	}
	return *c.Temperature
}

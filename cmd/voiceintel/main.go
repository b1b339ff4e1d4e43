package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voice-intel/config"
	"voice-intel/internal/application"
	"voice-intel/internal/domain"
	"voice-intel/internal/infra"
	"voice-intel/internal/infra/anthropic"
	"voice-intel/internal/infra/audio"
	"voice-intel/internal/infra/gemini"
	"voice-intel/internal/infra/openai"
	"voice-intel/internal/infra/pushover"
	"voice-intel/internal/observability"
	"voice-intel/internal/presentation"
	"voice-intel/internal/web"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	file := flag.String("file", "", "analyze this audio file and exit")
	record := flag.Bool("record", false, "record one clip from the microphone, analyze it and exit")
	out := flag.String("out", "", "write the JSON report to this path (with -file or -record)")
	temperature := flag.Float64("temperature", 0, "analysis temperature 0.0-1.0 (config value when unset)")
	flag.Parse()

	cfg, err := config.Load(resolveConfigPath(*configPath))
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log, os.Stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	stager := audio.NewStager(cfg.Audio.StagingDir)
	if n, err := stager.Sweep(audio.StaleAfter); err != nil {
		logger.Warn("sweeping staging dir", "error", err)
	} else if n > 0 {
		logger.Info("removed leftover staged audio", "files", n)
	}

	recorder := audio.NewMicrophoneRecorder(captureConfig(cfg.Audio), logger)
	metrics := observability.NewMetrics()

	pipeline := application.NewPipeline(
		stager,
		openai.NewWhisperClient(openaiOptions(cfg), cfg.OpenAI.TranscriptionModel),
		createAnalyzer(cfg),
		createNotifier(cfg.Pushover, retryConfig(cfg.Retry)),
		metrics,
		logger,
	)

	temp, err := chooseTemperature(flag.CommandLine, *temperature, cfg.Analysis.DefaultTemperature())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if *file != "" || *record {
		var clip domain.AudioClip
		if *file != "" {
			clip, err = audio.FromFile(*file)
		} else {
			clip, err = recorder.Record(ctx)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		if err := runOnce(ctx, pipeline, clip, temp, *out, os.Stdout); err != nil {
			logger.Error("analysis run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	server := web.NewServer(
		web.Options{
			Addr:               cfg.HTTP.Addr,
			MaxUploadBytes:     int64(cfg.HTTP.MaxUploadMB) << 20,
			RateLimit:          cfg.HTTP.RateLimit,
			RateLimitBurst:     cfg.HTTP.RateLimitBurst,
			TrustedProxies:     cfg.HTTP.TrustedProxies,
			DefaultTemperature: temp,
			MetricsHandler:     metrics.Handler(),
		},
		pipeline,
		recorder,
		metrics,
		logger,
	)

	logger.Info("starting voice intelligence",
		"addr", cfg.HTTP.Addr,
		"analysis_provider", cfg.Analysis.Provider,
		"microphone", recorder.Available(),
	)

	if err := server.Start(); err != nil {
		logger.Error("starting web server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		logger.Error("stopping web server", "error", err)
		os.Exit(1)
	}
}

// runOnce analyzes a single clip and prints the result.
func runOnce(ctx context.Context, pipeline *application.Pipeline, clip domain.AudioClip, temperature float64, out string, w io.Writer) error {
	report, err := pipeline.Process(ctx, clip, temperature)
	if err != nil {
		transcript := ""
		if report != nil {
			transcript = report.Transcript
		}
		presentation.RenderFailure(w, transcript, err)
		return err
	}

	view, err := presentation.NewResultView(*report)
	if err != nil {
		presentation.RenderFailure(w, report.Transcript, err)
		return err
	}

	if err := presentation.RenderText(w, view); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}

	if out != "" {
		if err := os.WriteFile(out, []byte(view.ReportJSON), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(w, "\nReport written to %s\n", out)
	}

	return nil
}

// chooseTemperature prefers an explicit -temperature, validated like the web form.
func chooseTemperature(fs *flag.FlagSet, value, fallback float64) (float64, error) {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "temperature" {
			set = true
		}
	})
	if !set {
		return fallback, nil
	}
	if err := application.ValidateTemperature(value); err != nil {
		return 0, err
	}
	return value, nil
}

// resolveConfigPath lets the binary run from environment variables alone when
// the default config file is absent.
func resolveConfigPath(path string) string {
	if path != defaultConfigPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return path
}

func openaiOptions(cfg *config.Config) openai.Options {
	return openai.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout(),
		Retry:   retryConfig(cfg.Retry),
	}
}

func retryConfig(cfg config.RetryConfig) infra.RetryConfig {
	initial, ceiling := cfg.Delays()
	retry := infra.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.InitialDelay = initial
	retry.MaxDelay = ceiling
	return retry
}

func createAnalyzer(cfg *config.Config) application.Analyzer {
	retry := retryConfig(cfg.Retry)
	timeout := cfg.OpenAI.Timeout()

	switch cfg.Analysis.Provider {
	case "anthropic":
		return anthropic.NewClaudeAnalyzer(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Analysis.MaxTokens, timeout).
			WithRetry(retry)
	case "gemini":
		return gemini.NewAnalyzer(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Analysis.MaxTokens, timeout).
			WithRetry(retry)
	default:
		return openai.NewChatAnalyzer(openaiOptions(cfg), cfg.OpenAI.AnalysisModel, cfg.Analysis.MaxTokens)
	}
}

func createNotifier(cfg config.PushoverConfig, retry infra.RetryConfig) application.Notifier {
	if cfg.Enabled {
		return pushover.NewClient(cfg.Token, cfg.UserKey).WithRetry(retry)
	}
	return &application.NoopNotifier{}
}

func captureConfig(cfg config.AudioConfig) audio.CaptureConfig {
	capture := audio.DefaultCaptureConfig()
	capture.SampleRate = cfg.SampleRate
	capture.PauseThreshold = cfg.Pause()
	capture.MaxDuration = cfg.Cap()
	capture.SilenceAmplitude = int16(cfg.SilenceAmplitude)
	return capture
}

func setupLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-intel/internal/domain"
)

// Pipeline runs one clip through staging, transcription and analysis.
type Pipeline struct {
	stager   Stager
	stt      Transcriber
	analyzer Analyzer
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger
}

func NewPipeline(
	stager Stager,
	stt Transcriber,
	analyzer Analyzer,
	notifier Notifier,
	metrics Metrics,
	logger *slog.Logger,
) *Pipeline {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Pipeline{
		stager:   stager,
		stt:      stt,
		analyzer: analyzer,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process returns the report for clip. When transcription succeeds but analysis
// fails, the returned report carries the transcript alongside the error.
func (p *Pipeline) Process(ctx context.Context, clip domain.AudioClip, temperature float64) (*domain.Report, error) {
	if err := ValidateTemperature(temperature); err != nil {
		return nil, err
	}
	if len(clip.Data) == 0 {
		return nil, domain.ErrEmptyAudio
	}

	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID)
	logger.Info("received audio",
		"source", clip.Source,
		"filename", clip.Filename,
		"bytes", len(clip.Data),
	)

	text, err := p.transcribe(ctx, clip, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("transcribed", "chars", len(text))

	report := &domain.Report{Transcript: text}

	start := time.Now()
	analysis, err := p.analyzer.Analyze(ctx, text, temperature)
	p.metrics.ObserveAnalysis(time.Since(start), err)
	if err != nil {
		logger.Error("analyzing transcript", "error", err)
		return report, fmt.Errorf("%w: %w", domain.ErrAnalysis, err)
	}

	report.Analysis = analysis

	threat := analysis.ThreatLevel()
	p.metrics.ObserveThreat(strings.ToLower(threat))

	logger.Info("analyzed",
		"sentiment", analysis[domain.FieldOverallSentiment],
		"score", analysis[domain.FieldSentimentScore],
		"threat_level", threat,
	)

	if analysis.IsThreat() {
		p.alert(ctx, requestID, report, logger)
	}

	return report, nil
}

func (p *Pipeline) transcribe(ctx context.Context, clip domain.AudioClip, logger *slog.Logger) (string, error) {
	staged, err := p.stager.Stage(clip)
	if err != nil {
		return "", fmt.Errorf("staging audio: %w", err)
	}
	defer func() {
		if err := staged.Release(); err != nil {
			logger.Warn("removing staged audio", "path", staged.Path(), "error", err)
		}
	}()

	start := time.Now()
	text, err := p.stt.Transcribe(ctx, staged.Path())
	p.metrics.ObserveTranscription(time.Since(start), err)
	if err != nil {
		logger.Error("transcribing", "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrTranscription, err)
	}

	return text, nil
}

func (p *Pipeline) alert(ctx context.Context, requestID string, report *domain.Report, logger *slog.Logger) {
	alert := ThreatAlert{
		RequestID:  requestID,
		Level:      strings.ToLower(report.Analysis.ThreatLevel()),
		Transcript: report.Transcript,
	}
	if summary, err := report.Analysis.Summary(); err == nil {
		alert.Summary = summary
	}

	logger.Warn("threat detected", "threat_level", alert.Level)

	if err := p.notifier.NotifyThreat(ctx, alert); err != nil {
		logger.Error("notifying threat", "error", err)
	}
}

// ValidateTemperature rejects sampling temperatures outside [0.0, 1.0].
func ValidateTemperature(temperature float64) error {
	if math.IsNaN(temperature) || temperature < 0 || temperature > 1 {
		return fmt.Errorf("%w: got %v", domain.ErrInvalidTemperature, temperature)
	}
	return nil
}

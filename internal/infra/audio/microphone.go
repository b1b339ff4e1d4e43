//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"voice-intel/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneRecorder captures from the default input device until the speaker pauses.
type MicrophoneRecorder struct {
	cfg    CaptureConfig
	logger *slog.Logger

	mu sync.Mutex
}

func NewMicrophoneRecorder(cfg CaptureConfig, logger *slog.Logger) *MicrophoneRecorder {
	return &MicrophoneRecorder{
		cfg:    cfg,
		logger: logger,
	}
}

func (m *MicrophoneRecorder) Available() bool {
	return true
}

func (m *MicrophoneRecorder) Record(ctx context.Context) (domain.AudioClip, error) {
	if !m.mu.TryLock() {
		return domain.AudioClip{}, ErrMicrophoneBusy
	}
	defer m.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return domain.AudioClip{}, fmt.Errorf("%w: initializing portaudio: %v", domain.ErrCaptureUnavailable, err)
	}
	defer portaudio.Terminate()

	frame := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.cfg.SampleRate), len(frame), frame)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("%w: opening input stream: %v", domain.ErrCaptureUnavailable, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return domain.AudioClip{}, fmt.Errorf("starting stream: %w", err)
	}
	defer stream.Stop()

	m.logger.Info("recording started",
		"sample_rate", m.cfg.SampleRate,
		"pause_threshold", m.cfg.PauseThreshold,
	)

	detector := NewPauseDetector(m.cfg.SilenceAmplitude, m.cfg.PauseThreshold, m.cfg.SampleRate)
	maxSamples := int(m.cfg.MaxDuration.Seconds() * float64(m.cfg.SampleRate))
	samples := make([]int16, 0, m.cfg.SampleRate*5)

	for {
		select {
		case <-ctx.Done():
			return domain.AudioClip{}, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return domain.AudioClip{}, fmt.Errorf("reading from stream: %w", err)
		}

		samples = append(samples, frame...)

		if detector.Observe(frame) {
			break
		}

		if len(samples) >= maxSamples {
			m.logger.Warn("recording hit max duration", "max_duration", m.cfg.MaxDuration)
			break
		}
	}

	data, err := EncodeWAV(samples, m.cfg.SampleRate)
	if err != nil {
		return domain.AudioClip{}, err
	}

	m.logger.Info("recording finished", "samples", len(samples), "bytes", len(data))

	return domain.AudioClip{
		Data:     data,
		Filename: CaptureFilename(time.Now()),
		Source:   domain.SourceMicrophone,
	}, nil
}

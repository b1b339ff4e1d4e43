//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"voice-intel/internal/domain"
)

// MicrophoneRecorder stub when portaudio is not available
type MicrophoneRecorder struct {
	logger *slog.Logger
}

func NewMicrophoneRecorder(_ CaptureConfig, logger *slog.Logger) *MicrophoneRecorder {
	return &MicrophoneRecorder{logger: logger}
}

func (m *MicrophoneRecorder) Available() bool {
	return false
}

func (m *MicrophoneRecorder) Record(_ context.Context) (domain.AudioClip, error) {
	return domain.AudioClip{}, fmt.Errorf("%w: %s", domain.ErrCaptureUnavailable, CaptureRemediation)
}

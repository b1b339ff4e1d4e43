//go:build !portaudio

package audio_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"voice-intel/internal/domain"
	"voice-intel/internal/infra/audio"
)

func TestMicrophoneRecorder_Unavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := audio.NewMicrophoneRecorder(audio.DefaultCaptureConfig(), logger)

	if recorder.Available() {
		t.Error("Available: got true without portaudio")
	}

	clip, err := recorder.Record(context.Background())
	if !errors.Is(err, domain.ErrCaptureUnavailable) {
		t.Fatalf("error: got %v, want ErrCaptureUnavailable", err)
	}
	if !strings.Contains(err.Error(), "-tags portaudio") {
		t.Errorf("error lacks remediation: %v", err)
	}
	if len(clip.Data) != 0 {
		t.Error("stub returned audio data")
	}
}

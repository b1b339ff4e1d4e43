package audio

import (
	"errors"
	"fmt"
	"time"
)

// CaptureRemediation tells the user how to enable microphone capture.
const CaptureRemediation = "microphone capture requires PortAudio: install the PortAudio library " +
	"(e.g. apt install portaudio19-dev, brew install portaudio) and rebuild with -tags portaudio"

// ErrMicrophoneBusy is returned when a recording is already in progress.
var ErrMicrophoneBusy = errors.New("microphone busy: another recording is in progress")

type CaptureConfig struct {
	SampleRate       int
	PauseThreshold   time.Duration
	MaxDuration      time.Duration
	SilenceAmplitude int16
}

func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       44100,
		PauseThreshold:   3 * time.Second,
		MaxDuration:      2 * time.Minute,
		SilenceAmplitude: 500,
	}
}

// CaptureFilename names a microphone clip after the moment it was taken.
func CaptureFilename(at time.Time) string {
	return fmt.Sprintf("mic_%d.wav", at.Unix())
}

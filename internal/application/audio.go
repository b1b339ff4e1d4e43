package application

import (
	"context"

	"voice-intel/internal/domain"
)

// Recorder captures one clip from a live input device.
type Recorder interface {
	Record(ctx context.Context) (domain.AudioClip, error)
	Available() bool
}

package application

import "context"

// Transcriber turns a staged audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

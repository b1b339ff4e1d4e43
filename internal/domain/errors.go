package domain

import "errors"

var (
	ErrCaptureUnavailable = errors.New("microphone capture not available")
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrEmptyAudio         = errors.New("empty audio")
	ErrInvalidTemperature = errors.New("temperature must be between 0.0 and 1.0")
	ErrTranscription      = errors.New("transcription failed")
	ErrAnalysis           = errors.New("analysis failed")
	ErrAnalysisParse      = errors.New("analysis response is not valid JSON")
	ErrMissingField       = errors.New("analysis field missing")
)

package application

import "voice-intel/internal/domain"

// StagedFile is an audio clip written to disk. Release removes it and is safe
// to call more than once.
type StagedFile interface {
	Path() string
	Release() error
}

type Stager interface {
	Stage(clip domain.AudioClip) (StagedFile, error)
}

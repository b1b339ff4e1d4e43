package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"voice-intel/internal/application"
	"voice-intel/internal/domain"
)

const stagePrefix = "voiceintel-"

// StaleAfter bounds how long a request may hold a staged file. Sweep leaves
// younger files alone since another process may still own them.
const StaleAfter = 15 * time.Minute

// Stager writes clips to uniquely named files so they can be sent by path.
type Stager struct {
	dir string
}

func NewStager(dir string) *Stager {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "voiceintel")
	}
	return &Stager{dir: dir}
}

func (s *Stager) Stage(clip domain.AudioClip) (application.StagedFile, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating staging dir: %w", err)
	}

	path := filepath.Join(s.dir, stagePrefix+uuid.NewString()+stagedExt(clip))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating staged file: %w", err)
	}

	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing staged file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing staged file: %w", err)
	}

	return &StagedFile{path: path}, nil
}

// Sweep removes staged files left behind by a crashed process. Only files
// last modified more than olderThan ago are touched.
func (s *Stager) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading staging dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), stagePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
		removed++
	}

	return removed, nil
}

// Microphone captures are always WAV; uploads keep their own extension,
// case included.
func stagedExt(clip domain.AudioClip) string {
	if clip.Source == domain.SourceMicrophone {
		return ".wav"
	}
	return filepath.Ext(clip.Filename)
}

type StagedFile struct {
	path string
}

func (f *StagedFile) Path() string {
	return f.path
}

func (f *StagedFile) Release() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing staged file: %w", err)
	}
	return nil
}

package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voice-intel/internal/domain"
)

// FromUpload wraps user-supplied bytes as a clip. The filename is kept verbatim
// so the transcription service can infer the container from its extension.
func FromUpload(filename string, data []byte) (domain.AudioClip, error) {
	clip := domain.AudioClip{
		Data:     data,
		Filename: filename,
		Source:   domain.SourceUpload,
	}

	if !domain.IsSupportedExtension(clip.Ext()) {
		return domain.AudioClip{}, fmt.Errorf("%w: %q (supported: %s)",
			domain.ErrUnsupportedFormat, filepath.Ext(filename), supportedList())
	}

	if len(data) == 0 {
		return domain.AudioClip{}, fmt.Errorf("%w: %s", domain.ErrEmptyAudio, filename)
	}

	return clip, nil
}

// FromFile reads a local audio file as if it had been uploaded.
func FromFile(path string) (domain.AudioClip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("reading audio file: %w", err)
	}
	return FromUpload(filepath.Base(path), data)
}

func supportedList() string {
	names := make([]string, len(domain.SupportedExtensions))
	for i, ext := range domain.SupportedExtensions {
		names[i] = strings.TrimPrefix(ext, ".")
	}
	return strings.Join(names, ", ")
}

package domain

import (
	"path/filepath"
	"strings"
)

type ClipSource string

const (
	SourceUpload     ClipSource = "upload"
	SourceMicrophone ClipSource = "microphone"
)

// AudioClip is one unit of user audio. It lives for a single request.
type AudioClip struct {
	Data     []byte
	Filename string
	Source   ClipSource
}

// SupportedExtensions lists the upload containers the transcription service accepts.
var SupportedExtensions = []string{".mp3", ".wav", ".m4a", ".webm", ".flac", ".mp4"}

// Ext returns the lowercase extension of the clip filename, including the dot.
func (c AudioClip) Ext() string {
	return strings.ToLower(filepath.Ext(c.Filename))
}

func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

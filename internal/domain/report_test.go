package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"voice-intel/internal/domain"
)

func TestReport_JSON(t *testing.T) {
	report := domain.Report{
		Transcript: "This is a test.",
		Analysis: domain.Analysis{
			"overall_sentiment": "neutral",
			"sentiment_score":   0.0,
			"summary":           "A brief test statement.",
			"threat_level":      "none",
		},
	}

	data, err := report.JSON()
	if err != nil {
		t.Fatalf("JSON error: %v", err)
	}

	if !strings.Contains(string(data), "\n  \"transcript\": \"This is a test.\"") {
		t.Errorf("expected two-space indentation, got:\n%s", data)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}

	if decoded["transcript"] != "This is a test." {
		t.Errorf("transcript: got %v", decoded["transcript"])
	}

	analysis, ok := decoded["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("analysis: got %T, want object", decoded["analysis"])
	}
	if len(analysis) != 4 {
		t.Errorf("analysis fields: got %d, want 4", len(analysis))
	}
}

func TestAudioClip_Ext(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.wav", ".wav"},
		{"Meeting.MP3", ".mp3"},
		{"archive.tar.flac", ".flac"},
		{"noext", ""},
	}

	for _, tt := range tests {
		clip := domain.AudioClip{Filename: tt.filename}
		if got := clip.Ext(); got != tt.want {
			t.Errorf("Ext(%q): got %q, want %q", tt.filename, got, tt.want)
		}
	}

	if domain.IsSupportedExtension(".ogg") {
		t.Error(".ogg should not be supported")
	}
	if !domain.IsSupportedExtension(".M4A") {
		t.Error(".M4A should be supported")
	}
}

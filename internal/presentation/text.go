package presentation

import (
	"fmt"
	"io"
)

// RenderText writes the view for a terminal.
func RenderText(w io.Writer, v ResultView) error {
	_, err := fmt.Fprintf(w, "📝 Transcript\n%s\n\nSentiment\n  Overall: %s\n  Score: %s\n\nSummary\n  %s\n",
		v.Transcript, v.SentimentLabel, v.Score, v.Summary)
	if err != nil {
		return err
	}

	if v.ShowThreat() {
		if _, err := fmt.Fprintf(w, "\n%s\n", v.ThreatBanner); err != nil {
			return err
		}
	}

	return nil
}

// RenderFailure shows whatever was obtained before a step failed.
func RenderFailure(w io.Writer, transcript string, cause error) error {
	if transcript != "" {
		if _, err := fmt.Fprintf(w, "📝 Transcript\n%s\n\n", transcript); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "❌ %v\n", cause)
	return err
}

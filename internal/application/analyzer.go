package application

import (
	"context"

	"voice-intel/internal/domain"
)

// Analyzer asks a language model for a sentiment and threat assessment.
type Analyzer interface {
	Analyze(ctx context.Context, text string, temperature float64) (domain.Analysis, error)
}

// AnalysisSystemPrompt is sent to every provider so they answer in the same shape.
const AnalysisSystemPrompt = `You are an NLP analyst. Produce a JSON object with:
overall_sentiment  (positive | neutral | negative),
sentiment_score    (-1.0…1.0),
summary            (concise 1-2 sentences),
threat_level       (none | potential | high) – if violence, hate, threats.
Only output valid JSON.`

// AnalysisUserMessage fences the transcript so the model reads it as data.
func AnalysisUserMessage(transcript string) string {
	return "Analyze this transcript:\n```\n" + transcript + "\n```"
}

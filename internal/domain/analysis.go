package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ThreatLevel string

const (
	ThreatNone      ThreatLevel = "none"
	ThreatPotential ThreatLevel = "potential"
	ThreatHigh      ThreatLevel = "high"
)

const (
	FieldOverallSentiment = "overall_sentiment"
	FieldSentimentScore   = "sentiment_score"
	FieldSummary          = "summary"
	FieldThreatLevel      = "threat_level"
)

// Analysis is the model's answer kept as decoded JSON. Fields are only trusted
// once read through the typed accessors.
type Analysis map[string]any

func (a Analysis) OverallSentiment() (string, error) {
	s, ok := a[FieldOverallSentiment].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, FieldOverallSentiment)
	}
	return s, nil
}

func (a Analysis) SentimentScore() (float64, error) {
	switch v := a[FieldSentimentScore].(type) {
	case float64:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMissingField, FieldSentimentScore, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrMissingField, FieldSentimentScore)
	}
}

func (a Analysis) Summary() (string, error) {
	s, ok := a[FieldSummary].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, FieldSummary)
	}
	return s, nil
}

// ThreatLevel is the one field with a default: anything absent or not a string is "none".
func (a Analysis) ThreatLevel() string {
	s, ok := a[FieldThreatLevel].(string)
	if !ok {
		return string(ThreatNone)
	}
	return s
}

// IsThreat reports whether the threat level warrants a warning.
func (a Analysis) IsThreat() bool {
	switch ThreatLevel(strings.ToLower(a.ThreatLevel())) {
	case ThreatPotential, ThreatHigh:
		return true
	default:
		return false
	}
}

// ParseAnalysis decodes a model response. It first tries the whole text, then the
// span from the first '{' to the last '}', which covers code fences and prose
// around the object. There is no third attempt.
func ParseAnalysis(raw string) (Analysis, error) {
	text := strings.TrimSpace(raw)

	var whole any
	if err := json.Unmarshal([]byte(text), &whole); err == nil {
		obj, ok := whole.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: response is JSON but not an object", ErrAnalysisParse)
		}
		return Analysis(obj), nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in response %q", ErrAnalysisParse, truncate(text, 200))
	}

	var result Analysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisParse, err)
	}
	if result == nil {
		return nil, fmt.Errorf("%w: response object is null", ErrAnalysisParse)
	}

	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

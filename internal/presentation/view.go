package presentation

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"voice-intel/internal/domain"
)

// ResultView is a report flattened into display strings.
type ResultView struct {
	Transcript     string
	SentimentLabel string
	Score          string
	Summary        string
	ThreatLevel    string
	ThreatBanner   string
	ReportJSON     string
	DownloadName   string
	DownloadURI    string
}

// ShowThreat reports whether the warning banner should be displayed.
func (v ResultView) ShowThreat() bool {
	return v.ThreatBanner != ""
}

// NewResultView validates the fields the display needs. A missing sentiment,
// score or summary is reported as domain.ErrMissingField.
func NewResultView(report domain.Report) (ResultView, error) {
	if report.Analysis == nil {
		return ResultView{}, fmt.Errorf("%w: no analysis in report", domain.ErrMissingField)
	}

	sentiment, err := report.Analysis.OverallSentiment()
	if err != nil {
		return ResultView{}, err
	}
	score, err := report.Analysis.SentimentScore()
	if err != nil {
		return ResultView{}, err
	}
	summary, err := report.Analysis.Summary()
	if err != nil {
		return ResultView{}, err
	}

	data, err := report.JSON()
	if err != nil {
		return ResultView{}, fmt.Errorf("encoding report: %w", err)
	}

	view := ResultView{
		Transcript:     report.Transcript,
		SentimentLabel: cases.Title(language.Und).String(sentiment),
		Score:          fmt.Sprintf("%.2f", score),
		Summary:        summary,
		ThreatLevel:    report.Analysis.ThreatLevel(),
		ReportJSON:     string(data),
		DownloadName:   domain.ReportFilename,
		DownloadURI:    "data:" + domain.ReportContentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	if report.Analysis.IsThreat() {
		view.ThreatBanner = ThreatBanner(view.ThreatLevel)
	}

	return view, nil
}

func ThreatBanner(level string) string {
	return fmt.Sprintf("⚠️ Threat detected: %s", strings.ToUpper(level))
}

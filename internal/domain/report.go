package domain

import "encoding/json"

const (
	ReportFilename    = "voice_analysis.json"
	ReportContentType = "application/json"
)

// Report is the exportable result of one run. Analysis is nil when the
// transcript was obtained but the analysis step failed.
type Report struct {
	Transcript string   `json:"transcript"`
	Analysis   Analysis `json:"analysis"`
}

// JSON serializes the report with two-space indentation.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

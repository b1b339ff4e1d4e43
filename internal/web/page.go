package web

import (
	"embed"
	"html/template"
	"net/http"

	"voice-intel/internal/domain"
	"voice-intel/internal/infra/audio"
	"voice-intel/internal/presentation"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type page struct {
	Source       string
	Temperature  float64
	MicAvailable bool
	Remediation  string

	Transcript string
	Error      string

	Result       *presentation.ResultView
	DownloadName string
	DownloadURI  template.URL
}

func (s *Server) newPage(source string, temperature float64) *page {
	p := &page{
		Source:       source,
		Temperature:  temperature,
		MicAvailable: s.recorder != nil && s.recorder.Available(),
		DownloadName: domain.ReportFilename,
	}
	if !p.MicAvailable {
		p.Remediation = audio.CaptureRemediation
	}
	return p
}

func (p *page) setResult(view presentation.ResultView) {
	p.Result = &view
	p.Transcript = view.Transcript
	p.DownloadName = view.DownloadName
	// Built from base64 of our own JSON, never from user input.
	p.DownloadURI = template.URL(view.DownloadURI)
}

func (s *Server) render(w http.ResponseWriter, code int, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTemplate.ExecuteTemplate(w, "page.html", p); err != nil {
		s.logger.Error("rendering page", "error", err)
	}
}

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"voice-intel/internal/application"
	"voice-intel/internal/domain"
	"voice-intel/internal/infra/audio"
	"voice-intel/internal/presentation"
)

const (
	sourceUpload = "upload"
	sourceMic    = "mic"
)

// request is a parsed analysis submission.
type request struct {
	source      string
	temperature float64
	clip        domain.AudioClip
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage(sourceUpload, s.opts.DefaultTemperature))
}

func (s *Server) handleAnalyzeForm(w http.ResponseWriter, r *http.Request) {
	req, err := s.readRequest(w, r)
	if err != nil {
		page := s.newPage(req.source, req.temperature)
		page.Error = userMessage(err)
		s.render(w, statusFor(err), page)
		return
	}

	page := s.newPage(req.source, req.temperature)

	report, err := s.pipeline.Process(r.Context(), req.clip, req.temperature)
	if report != nil {
		page.Transcript = report.Transcript
	}
	if err != nil {
		page.Error = userMessage(err)
		s.render(w, statusFor(err), page)
		return
	}

	view, err := presentation.NewResultView(*report)
	if err != nil {
		s.logger.Error("presenting analysis", "error", err)
		page.Error = userMessage(err)
		s.render(w, statusFor(err), page)
		return
	}

	page.setResult(view)
	s.render(w, http.StatusOK, page)
}

type apiError struct {
	Error      string `json:"error"`
	Transcript string `json:"transcript,omitempty"`
}

func (s *Server) handleAnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	req, err := s.readRequest(w, r)
	if err != nil {
		writeJSON(w, statusFor(err), apiError{Error: userMessage(err)})
		return
	}

	report, err := s.pipeline.Process(r.Context(), req.clip, req.temperature)
	if err != nil {
		body := apiError{Error: userMessage(err)}
		if report != nil {
			body.Transcript = report.Transcript
		}
		writeJSON(w, statusFor(err), body)
		return
	}

	data, err := report.JSON()
	if err != nil {
		s.logger.Error("encoding report", "error", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "failed to encode report"})
		return
	}

	w.Header().Set("Content-Type", domain.ReportContentType)
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ReportFilename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"microphone": s.recorder != nil && s.recorder.Available(),
	})
}

// readRequest returns the clip selected by the source toggle. The returned
// request keeps source and temperature even on error so forms can be refilled.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (request, error) {
	req := request{source: sourceUpload, temperature: s.opts.DefaultTemperature}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, fmt.Errorf("reading form: %w", err)
	}

	if src := strings.ToLower(r.FormValue("source")); src != "" {
		req.source = src
	}

	if raw := r.FormValue("temperature"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidTemperature, raw)
		}
		req.temperature = t
	}
	if err := application.ValidateTemperature(req.temperature); err != nil {
		return req, err
	}

	var err error
	switch req.source {
	case sourceUpload:
		req.clip, err = readUpload(r)
	case sourceMic:
		req.clip, err = s.record(r.Context())
	default:
		err = fmt.Errorf("%w: unknown source %q", errBadRequest, req.source)
	}
	return req, err
}

var errBadRequest = errors.New("bad request")

func readUpload(r *http.Request) (domain.AudioClip, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("%w: no audio file provided", errBadRequest)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("reading upload: %w", err)
	}

	return audio.FromUpload(header.Filename, data)
}

func (s *Server) record(ctx context.Context) (domain.AudioClip, error) {
	if s.recorder == nil || !s.recorder.Available() {
		return domain.AudioClip{}, fmt.Errorf("%w: %s", domain.ErrCaptureUnavailable, audio.CaptureRemediation)
	}
	return s.recorder.Record(ctx)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrEmptyAudio),
		errors.Is(err, domain.ErrInvalidTemperature):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrMicrophoneBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCaptureUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTranscription),
		errors.Is(err, domain.ErrAnalysis),
		errors.Is(err, domain.ErrMissingField):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Sprintf("upload exceeds the %d MB limit", maxErr.Limit>>20)
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

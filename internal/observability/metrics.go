package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-intel/internal/domain"
)

// Metrics records pipeline and HTTP activity in Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	transcriptions       *prometheus.CounterVec
	transcriptionLatency prometheus.Histogram
	analyses             *prometheus.CounterVec
	analysisLatency      prometheus.Histogram
	threats              *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceintel_transcriptions_total",
			Help: "Transcription requests by outcome",
		}, []string{"status"}),
		transcriptionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceintel_transcription_duration_seconds",
			Help:    "Time spent waiting for the speech-to-text service",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		analyses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceintel_analyses_total",
			Help: "Analysis requests by outcome (ok, parse_error, error)",
		}, []string{"status"}),
		analysisLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceintel_analysis_duration_seconds",
			Help:    "Time spent waiting for the language model",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		threats: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceintel_threat_levels_total",
			Help: "Analyzed transcripts by reported threat level",
		}, []string{"level"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceintel_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

func (m *Metrics) ObserveTranscription(elapsed time.Duration, err error) {
	m.transcriptionLatency.Observe(elapsed.Seconds())
	m.transcriptions.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) ObserveAnalysis(elapsed time.Duration, err error) {
	m.analysisLatency.Observe(elapsed.Seconds())
	status := outcome(err)
	if errors.Is(err, domain.ErrAnalysisParse) {
		status = "parse_error"
	}
	m.analyses.WithLabelValues(status).Inc()
}

// ObserveThreat counts threat levels; values outside the known set share one label.
func (m *Metrics) ObserveThreat(level string) {
	switch domain.ThreatLevel(level) {
	case domain.ThreatNone, domain.ThreatPotential, domain.ThreatHigh:
	default:
		level = "other"
	}
	m.threats.WithLabelValues(level).Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

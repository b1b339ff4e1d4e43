package application

import "time"

type Metrics interface {
	ObserveTranscription(elapsed time.Duration, err error)
	ObserveAnalysis(elapsed time.Duration, err error)
	ObserveThreat(level string)
}

type NoopMetrics struct{}

func (NoopMetrics) ObserveTranscription(time.Duration, error) {}
func (NoopMetrics) ObserveAnalysis(time.Duration, error)      {}
func (NoopMetrics) ObserveThreat(string)                      {}

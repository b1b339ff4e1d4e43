package application

import "context"

// ThreatAlert describes a transcript the analyzer flagged.
type ThreatAlert struct {
	RequestID  string
	Level      string
	Summary    string
	Transcript string
}

// Notifier is told about transcripts flagged as threatening.
type Notifier interface {
	NotifyThreat(ctx context.Context, alert ThreatAlert) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) NotifyThreat(_ context.Context, _ ThreatAlert) error {
	return nil
}

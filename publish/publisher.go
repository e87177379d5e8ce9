// Package publish emits triage lifecycle events over NATS so embedding
// applications can observe flagged cells and analysis outcomes.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for triage lifecycle events.
const (
	SubjectCellFlagged      = "nbtriage.cell.flagged"
	SubjectAnalysisStarted  = "nbtriage.analysis.started"
	SubjectAnalysisComplete = "nbtriage.analysis.completed"
	SubjectAnalysisFailed   = "nbtriage.analysis.failed"
)

// CellEvent reports a cell gaining or refreshing an error snapshot.
type CellEvent struct {
	DocumentID string    `json:"document_id"`
	CellID     string    `json:"cell_id"`
	Diagnostic string    `json:"diagnostic"`
	At         time.Time `json:"at"`
}

// AnalysisEvent reports one analysis request transition.
type AnalysisEvent struct {
	RequestID string    `json:"request_id"`
	CellID    string    `json:"cell_id"`
	Model     string    `json:"model,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher publishes triage events. A nil Publisher (or one constructed
// with a nil connection) is valid and publishes nothing, so eventing stays
// optional.
type Publisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// New creates a publisher over an established NATS connection.
func New(nc *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{nc: nc, logger: logger}
}

// CellFlagged publishes a cell-flagged event.
func (p *Publisher) CellFlagged(ev CellEvent) {
	ev.At = time.Now()
	p.publish(SubjectCellFlagged, ev)
}

// AnalysisStarted publishes an analysis-started event.
func (p *Publisher) AnalysisStarted(ev AnalysisEvent) {
	ev.At = time.Now()
	p.publish(SubjectAnalysisStarted, ev)
}

// AnalysisCompleted publishes an analysis-completed event.
func (p *Publisher) AnalysisCompleted(ev AnalysisEvent) {
	ev.At = time.Now()
	p.publish(SubjectAnalysisComplete, ev)
}

// AnalysisFailed publishes an analysis-failed event.
func (p *Publisher) AnalysisFailed(ev AnalysisEvent) {
	ev.At = time.Now()
	p.publish(SubjectAnalysisFailed, ev)
}

// publish marshals and sends one event. Publish failures are logged, never
// propagated: eventing must not affect the triage pipeline.
func (p *Publisher) publish(subject string, payload any) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("Failed to marshal triage event", "subject", subject, "error", err)
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish triage event", "subject", subject, "error", err)
	}
}

// Connect dials a NATS server and returns a publisher over the connection.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("nbtriage"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(nc, logger), nil
}

// Close drains and closes the underlying connection, if any.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
	p.nc.Close()
}

package triage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/llm"
	"github.com/c360studio/nbtriage/metrics"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/publish"
)

// LoadingMessage is rendered into the result region while a request is in
// flight.
const LoadingMessage = "Loading..."

// ErrAnalysisInFlight is returned when a cell already has an analysis in
// flight. Disabling the control prevents this through the UI; the explicit
// guard covers activations that bypass it.
var ErrAnalysisInFlight = errors.New("analysis already in flight for this cell")

// ErrCredentialRequired is returned when no credential is available: the
// dialog was cancelled, unavailable, or confirmed with an empty credential.
// No request is issued and nothing is rendered.
var ErrCredentialRequired = errors.New("credential required to run analysis")

// Runner drives one analysis invocation through its phases:
//
//	Idle → AwaitingCredential (credential empty) → Loading → Succeeded|Failed → Idle
//
// Invocations on different cells may run concurrently, each with its own
// control and region; the session store is the only shared state and is
// read-only while a request is in flight.
type Runner struct {
	session     *config.Session
	completer   Completer
	surface     CellSurface
	decorations *Decorations
	dialog      Dialog
	events      *publish.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithDialog sets the modal dialog used to prompt for a missing credential.
func WithDialog(d Dialog) RunnerOption {
	return func(r *Runner) { r.dialog = d }
}

// WithEvents sets the lifecycle event publisher.
func WithEvents(p *publish.Publisher) RunnerOption {
	return func(r *Runner) { r.events = p }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithRunnerLogger sets the logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a runner. session, completer, surface, and decorations
// are required; the dialog, events, and metrics are optional.
func NewRunner(session *config.Session, completer Completer, surface CellSurface, decorations *Decorations, opts ...RunnerOption) *Runner {
	r := &Runner{
		session:     session,
		completer:   completer,
		surface:     surface,
		decorations: decorations,
		logger:      slog.Default(),
		inFlight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one analysis for a cell's bound error text and blocks until
// it settles. The returned error reports why no explanation was rendered
// (guard failures) or the transport failure that was already rendered into
// the region; either way the failure never affects other cells.
func (r *Runner) Run(ctx context.Context, cell *notebook.Cell, errorText string) error {
	cellID := cell.ID()

	r.mu.Lock()
	if r.inFlight[cellID] {
		r.mu.Unlock()
		return ErrAnalysisInFlight
	}
	r.inFlight[cellID] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.inFlight, cellID)
		r.mu.Unlock()
	}()

	settings, err := r.ensureCredential(ctx)
	if err != nil {
		return err
	}

	// Disable before anything async so a double click cannot slip in.
	control := r.decorations.Control(cellID)
	if control != nil {
		control.SetEnabled(false)
		defer control.SetEnabled(true)
	}

	region := r.surface.NewRegion(cell)
	r.decorations.BindRegion(cellID, region)
	region.ShowText(LoadingMessage)

	requestID := uuid.New().String()
	started := time.Now()
	r.events.AnalysisStarted(publish.AnalysisEvent{RequestID: requestID, CellID: cellID})

	resp, err := r.completer.Complete(ctx, llm.Request{
		Credential: settings.Credential,
		Messages: []llm.Message{
			{Role: "user", Content: BuildPrompt(settings, errorText)},
		},
	})

	region.Clear()
	if err != nil {
		region.ShowText(err.Error())
		r.logger.Error("Analysis request failed",
			"request_id", requestID,
			"cell", cellID,
			"error", err)
		r.metrics.AnalysisSettled(false, time.Since(started))
		r.events.AnalysisFailed(publish.AnalysisEvent{RequestID: requestID, CellID: cellID, Error: err.Error()})
		return err
	}

	region.ShowText(resp.Content)
	r.logger.Debug("Analysis completed",
		"request_id", requestID,
		"cell", cellID,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens)
	r.metrics.AnalysisSettled(true, time.Since(started))
	r.events.AnalysisCompleted(publish.AnalysisEvent{RequestID: requestID, CellID: cellID, Model: resp.Model})
	return nil
}

// ensureCredential returns settings with a usable credential, prompting the
// dialog when the session credential is empty. A cancelled dialog leaves
// the session untouched.
func (r *Runner) ensureCredential(ctx context.Context) (config.Settings, error) {
	settings := r.session.Snapshot()
	if settings.Credential != "" {
		return settings, nil
	}

	if r.dialog == nil {
		return settings, ErrCredentialRequired
	}

	edited, accepted, err := r.dialog.Open(ctx, settings)
	if err != nil {
		return settings, err
	}
	if !accepted {
		return settings, ErrCredentialRequired
	}

	r.session.Apply(edited)
	settings = r.session.Snapshot()
	if settings.Credential == "" {
		return settings, ErrCredentialRequired
	}
	return settings, nil
}

package triage

import (
	"context"
	"log/slog"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/metrics"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/publish"
)

// SettingsButtonLabel is the label of the per-document toolbar button that
// opens the settings dialog.
const SettingsButtonLabel = "Triage settings"

// Watcher tracks open documents: on track it attaches the toolbar settings
// button, performs an initial full scan, and re-scans on every structural
// or output change notification.
type Watcher struct {
	decorations *Decorations
	session     *config.Session
	dialog      Dialog
	toolbars    ToolbarProvider
	events      *publish.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger

	docs map[string]*docState
}

type docState struct {
	doc *notebook.Document
	// subscribed guards against stacking output listeners on a cell across
	// structural rescans.
	subscribed map[string]bool
	// known is the cell-id set of the last refresh, used to discard
	// decorations of removed cells.
	known map[string]bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettingsDialog enables the toolbar settings button, editing the given
// session through the dialog.
func WithSettingsDialog(session *config.Session, dialog Dialog, toolbars ToolbarProvider) WatcherOption {
	return func(w *Watcher) {
		w.session = session
		w.dialog = dialog
		w.toolbars = toolbars
	}
}

// WithWatcherEvents sets the lifecycle event publisher.
func WithWatcherEvents(p *publish.Publisher) WatcherOption {
	return func(w *Watcher) { w.events = p }
}

// WithWatcherMetrics sets the metrics collectors.
func WithWatcherMetrics(m *metrics.Metrics) WatcherOption {
	return func(w *Watcher) { w.metrics = m }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = logger }
}

// NewWatcher creates a watcher over the given decoration registry.
func NewWatcher(decorations *Decorations, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		decorations: decorations,
		logger:      slog.Default(),
		docs:        make(map[string]*docState),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Track begins observing a document. A nil document (no model) is a no-op.
// Tracking an already tracked document just triggers a refresh.
func (w *Watcher) Track(doc *notebook.Document) {
	if doc == nil {
		return
	}
	if state, ok := w.docs[doc.ID()]; ok {
		w.refresh(state)
		return
	}

	state := &docState{
		doc:        doc,
		subscribed: make(map[string]bool),
		known:      make(map[string]bool),
	}
	w.docs[doc.ID()] = state

	if w.toolbars != nil && w.dialog != nil && w.session != nil {
		if tb := w.toolbars.DocumentToolbar(doc); tb != nil {
			tb.AddButton(SettingsButtonLabel, w.openSettings)
		}
	}

	doc.OnCellsChanged(func(*notebook.Document) {
		w.refresh(state)
	})

	w.logger.Debug("Tracking document", "document", doc.ID())
	w.refresh(state)
}

// Replace swaps a tracked document for a freshly parsed version with the
// same identity (file-backed documents are re-read on change). Decorations
// carry over by cell ID; cells that disappeared are discarded.
func (w *Watcher) Replace(doc *notebook.Document) {
	if doc == nil {
		return
	}
	old, ok := w.docs[doc.ID()]
	if !ok {
		w.Track(doc)
		return
	}

	live := make(map[string]bool, len(doc.Cells()))
	for _, cell := range doc.Cells() {
		live[cell.ID()] = true
	}
	for id := range old.known {
		if !live[id] {
			w.decorations.Discard(id)
		}
	}

	delete(w.docs, doc.ID())
	w.Track(doc)
}

// Untrack stops observing a document and discards its decorations.
func (w *Watcher) Untrack(docID string) {
	state, ok := w.docs[docID]
	if !ok {
		return
	}
	for id := range state.known {
		w.decorations.Discard(id)
	}
	delete(w.docs, docID)
}

// refresh reconciles listeners and decorations with the document's current
// cell list, then rescans.
func (w *Watcher) refresh(state *docState) {
	live := make(map[string]bool, len(state.doc.Cells()))
	for _, cell := range state.doc.Cells() {
		live[cell.ID()] = true
		if cell.Kind() != notebook.CellCode || state.subscribed[cell.ID()] {
			continue
		}
		state.subscribed[cell.ID()] = true
		cell.OnOutputsChanged(func(*notebook.Cell) {
			w.rescan(state.doc)
		})
	}

	for id := range state.known {
		if !live[id] {
			w.decorations.Discard(id)
		}
	}
	state.known = live

	w.rescan(state.doc)
}

// rescan evaluates every code cell and reconciles its decoration.
func (w *Watcher) rescan(doc *notebook.Document) {
	for _, cell := range doc.Cells() {
		if cell.Kind() != notebook.CellCode {
			continue
		}
		w.metrics.CellScanned()

		info := notebook.Scan(cell)
		if info != nil && info.Text == "" {
			// Empty diagnostic under the well-known key: fall back to the
			// richer payload forms before giving the control nothing.
			info.Text = notebook.RichErrorText(cell.Outputs()[0])
		}

		switch w.decorations.Apply(cell, info) {
		case Attached, Rebound:
			w.metrics.ErrorFlagged()
			w.events.CellFlagged(publish.CellEvent{
				DocumentID: doc.ID(),
				CellID:     cell.ID(),
				Diagnostic: info.Text,
			})
		}
	}
}

// openSettings runs the settings dialog and applies the result when the
// user confirms.
func (w *Watcher) openSettings() {
	edited, accepted, err := w.dialog.Open(context.Background(), w.session.Snapshot())
	if err != nil {
		w.logger.Error("Settings dialog failed", "error", err)
		return
	}
	if accepted {
		w.session.Apply(edited)
	}
}

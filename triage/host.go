// Package triage is the error-detection-and-analysis core: it scans
// documents for errored cells, keeps exactly one action control per errored
// cell, and drives the analysis request lifecycle against the completion
// endpoint. The host surface (regions, toolbar, modal dialog) is supplied
// through the interfaces in this file.
package triage

import (
	"context"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/llm"
	"github.com/c360studio/nbtriage/notebook"
)

// Region is an ephemeral rendered area beneath a cell holding the loading
// placeholder, the final explanation, or a failure message. State
// transitions replace its content wholesale: Clear then ShowText.
type Region interface {
	ShowText(text string)
	Clear()
	Remove()
}

// Control is the injected affordance that triggers an analysis for a
// specific error snapshot.
type Control interface {
	SetEnabled(enabled bool)
	Dispose()
}

// CellSurface creates controls and result regions in a cell's rendered
// area.
type CellSurface interface {
	// AttachControl appends an action control to the cell's area. The
	// activate callback fires on user activation.
	AttachControl(cell *notebook.Cell, label string, activate func()) Control

	// NewRegion appends a fresh result region to the cell's area.
	NewRegion(cell *notebook.Cell) Region
}

// Toolbar allows inserting a labeled clickable control into a document's
// toolbar.
type Toolbar interface {
	AddButton(label string, onClick func())
}

// ToolbarProvider resolves the toolbar of a document.
type ToolbarProvider interface {
	DocumentToolbar(doc *notebook.Document) Toolbar
}

// Dialog presents the session settings modally. It returns the edited
// settings and whether the user accepted; on accepted == false the caller
// must not apply the returned value.
type Dialog interface {
	Open(ctx context.Context, initial config.Settings) (config.Settings, bool, error)
}

// Completer issues one completion request. *llm.Client satisfies it; tests
// substitute a mock.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

package triage

import (
	"sync"

	"github.com/c360studio/nbtriage/notebook"
)

// ActionLabel is the label of the injected action control.
const ActionLabel = "Explain error"

// ApplyResult describes what a scan pass did to a cell's decoration.
type ApplyResult int

const (
	// Unchanged: the cell keeps its current decoration (or has none).
	Unchanged ApplyResult = iota
	// Attached: a control was attached to a newly errored cell.
	Attached
	// Rebound: the error snapshot changed; the control was replaced.
	Rebound
	// Removed: the error cleared; control and region were removed.
	Removed
)

// decoration is the per-cell record of the live control, the error snapshot
// it is bound to, and the latest result region.
type decoration struct {
	control   Control
	boundText string
	region    Region
}

// Decorations keeps the id-keyed decoration records that guarantee at most
// one live action control per cell across any number of rescans.
type Decorations struct {
	mu       sync.Mutex
	surface  CellSurface
	activate func(cell *notebook.Cell, errorText string)
	cells    map[string]*decoration
}

// NewDecorations creates the registry. activate fires when a control is
// clicked, carrying the error snapshot the control was bound to at the
// latest scan.
func NewDecorations(surface CellSurface, activate func(cell *notebook.Cell, errorText string)) *Decorations {
	return &Decorations{
		surface:  surface,
		activate: activate,
		cells:    make(map[string]*decoration),
	}
}

// Apply reconciles a cell's decoration with the current scan result.
//
// A nil info removes any existing control and result region (the error
// cleared). An unchanged snapshot is a no-op, so rescans triggered by
// unrelated mutations never duplicate controls. A changed snapshot disposes
// the old control and attaches a fresh one bound to the new text, so a
// stale control can never fire with outdated diagnostics.
func (d *Decorations) Apply(cell *notebook.Cell, info *notebook.ErrorInfo) ApplyResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := cell.ID()
	existing := d.cells[id]

	if info == nil {
		if existing == nil {
			return Unchanged
		}
		d.removeLocked(id)
		return Removed
	}

	if existing != nil {
		if existing.boundText == info.Text {
			return Unchanged
		}
		existing.control.Dispose()
		existing.control = d.attach(cell, info.Text)
		existing.boundText = info.Text
		return Rebound
	}

	d.cells[id] = &decoration{
		control:   d.attach(cell, info.Text),
		boundText: info.Text,
	}
	return Attached
}

func (d *Decorations) attach(cell *notebook.Cell, errorText string) Control {
	return d.surface.AttachControl(cell, ActionLabel, func() {
		d.activate(cell, errorText)
	})
}

// BindRegion records the result region of the latest analysis invocation
// for a cell, removing the region of any earlier invocation.
func (d *Decorations) BindRegion(cellID string, region Region) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dec := d.cells[cellID]
	if dec == nil {
		return
	}
	if dec.region != nil {
		dec.region.Remove()
	}
	dec.region = region
}

// Control returns the live control for a cell, or nil.
func (d *Decorations) Control(cellID string) Control {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dec := d.cells[cellID]; dec != nil {
		return dec.control
	}
	return nil
}

// BoundText returns the error snapshot a cell's control is bound to.
func (d *Decorations) BoundText(cellID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dec := d.cells[cellID]; dec != nil {
		return dec.boundText, true
	}
	return "", false
}

// Discard removes a cell's decoration outright, e.g. when the cell itself
// was removed from its document.
func (d *Decorations) Discard(cellID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removeLocked(cellID)
}

func (d *Decorations) removeLocked(cellID string) {
	dec := d.cells[cellID]
	if dec == nil {
		return
	}
	dec.control.Dispose()
	if dec.region != nil {
		dec.region.Remove()
	}
	delete(d.cells, cellID)
}

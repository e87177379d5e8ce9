// Package console is a terminal implementation of the triage host
// surfaces: result regions and action notices rendered with lipgloss, the
// settings dialog as a huh form.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/triage"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	noticeStyle = lipgloss.NewStyle().Faint(true)
	regionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// Surface renders triage output to a terminal writer.
type Surface struct {
	mu       sync.Mutex
	w        io.Writer
	toolbars map[string]*Toolbar
}

// NewSurface creates a surface writing to w.
func NewSurface(w io.Writer) *Surface {
	return &Surface{w: w, toolbars: make(map[string]*Toolbar)}
}

// AttachControl implements triage.CellSurface. On a terminal the control is
// a named action the embedding command can trigger; attaching it prints a
// notice so the user knows the action exists.
func (s *Surface) AttachControl(cell *notebook.Cell, label string, activate func()) triage.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, noticeStyle.Render(fmt.Sprintf("[%s] %s", cell.ID(), label)))
	return &Control{label: label, activate: activate, enabled: true}
}

// NewRegion implements triage.CellSurface.
func (s *Surface) NewRegion(cell *notebook.Cell) triage.Region {
	return &Region{surface: s, cellID: cell.ID()}
}

// DocumentToolbar implements triage.ToolbarProvider.
func (s *Surface) DocumentToolbar(doc *notebook.Document) triage.Toolbar {
	s.mu.Lock()
	defer s.mu.Unlock()
	tb, ok := s.toolbars[doc.ID()]
	if !ok {
		tb = &Toolbar{buttons: make(map[string]func())}
		s.toolbars[doc.ID()] = tb
	}
	return tb
}

// write renders one block for a cell.
func (s *Surface) write(cellID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, headerStyle.Render(cellID))
	fmt.Fprintln(s.w, regionStyle.Render(text))
}

// Control is a terminal action affordance.
type Control struct {
	mu       sync.Mutex
	label    string
	activate func()
	enabled  bool
	disposed bool
}

// Activate triggers the action if the control is live and enabled.
func (c *Control) Activate() {
	c.mu.Lock()
	ok := c.enabled && !c.disposed
	fn := c.activate
	c.mu.Unlock()
	if ok {
		fn()
	}
}

// SetEnabled implements triage.Control.
func (c *Control) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Dispose implements triage.Control.
func (c *Control) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}

// Region is a terminal result region. A terminal cannot retract printed
// output, so Clear and Remove only reset state; each ShowText renders a
// fresh block.
type Region struct {
	surface *Surface
	cellID  string
}

// ShowText implements triage.Region.
func (r *Region) ShowText(text string) {
	r.surface.write(r.cellID, text)
}

// Clear implements triage.Region.
func (r *Region) Clear() {}

// Remove implements triage.Region.
func (r *Region) Remove() {}

// Toolbar is a named action set for one document.
type Toolbar struct {
	mu      sync.Mutex
	buttons map[string]func()
}

// AddButton implements triage.Toolbar.
func (t *Toolbar) AddButton(label string, onClick func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buttons[label] = onClick
}

// Trigger invokes a button by label, reporting whether it exists.
func (t *Toolbar) Trigger(label string) bool {
	t.mu.Lock()
	fn, ok := t.buttons[label]
	t.mu.Unlock()
	if ok {
		fn()
	}
	return ok
}

// Dialog presents the session settings as a modal terminal form.
type Dialog struct{}

// Open implements triage.Dialog. It blocks until the user confirms or
// cancels; Esc/Ctrl+C count as cancellation, not an error.
func (Dialog) Open(ctx context.Context, initial config.Settings) (config.Settings, bool, error) {
	edited := initial
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Bearer credential for the completion endpoint").
				EchoMode(huh.EchoModePassword).
				Value(&edited.Credential),
			huh.NewInput().
				Title("Answer language").
				Value(&edited.Language),
			huh.NewText().
				Title("Prompt template").
				Description("Prepended to the diagnostic text").
				Value(&edited.PromptTemplate),
			huh.NewConfirm().
				Title("Apply settings?").
				Affirmative("Apply").
				Negative("Cancel").
				Value(&confirmed),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return initial, false, nil
		}
		return initial, false, err
	}

	return edited, confirmed, nil
}

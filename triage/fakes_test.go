package triage_test

import (
	"context"
	"sync"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/llm"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/triage"
)

type fakeControl struct {
	mu       sync.Mutex
	label    string
	activate func()
	enabled  bool
	disposed bool
}

func (c *fakeControl) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *fakeControl) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
}

func (c *fakeControl) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *fakeControl) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Click simulates a user activation.
func (c *fakeControl) Click() { c.activate() }

type fakeRegion struct {
	mu      sync.Mutex
	history []string
	current string
	removed bool
}

func (r *fakeRegion) ShowText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, text)
	r.current = text
}

func (r *fakeRegion) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ""
}

func (r *fakeRegion) Remove() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = true
}

func (r *fakeRegion) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *fakeRegion) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

func (r *fakeRegion) Removed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removed
}

type fakeSurface struct {
	mu       sync.Mutex
	controls map[string][]*fakeControl
	regions  map[string][]*fakeRegion
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		controls: make(map[string][]*fakeControl),
		regions:  make(map[string][]*fakeRegion),
	}
}

func (s *fakeSurface) AttachControl(cell *notebook.Cell, label string, activate func()) triage.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &fakeControl{label: label, activate: activate, enabled: true}
	s.controls[cell.ID()] = append(s.controls[cell.ID()], c)
	return c
}

func (s *fakeSurface) NewRegion(cell *notebook.Cell) triage.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &fakeRegion{}
	s.regions[cell.ID()] = append(s.regions[cell.ID()], r)
	return r
}

// liveControls counts attached-and-not-disposed controls for a cell.
func (s *fakeSurface) liveControls(cellID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.controls[cellID] {
		if !c.Disposed() {
			n++
		}
	}
	return n
}

func (s *fakeSurface) latestControl(cellID string) *fakeControl {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.controls[cellID]
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}

func (s *fakeSurface) latestRegion(cellID string) *fakeRegion {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.regions[cellID]
	if len(rs) == 0 {
		return nil
	}
	return rs[len(rs)-1]
}

type fakeDialog struct {
	mu     sync.Mutex
	result config.Settings
	accept bool
	err    error
	opened int
	seen   config.Settings
}

func (d *fakeDialog) Open(_ context.Context, initial config.Settings) (config.Settings, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	d.seen = initial
	if d.err != nil {
		return initial, false, d.err
	}
	return d.result, d.accept, nil
}

func (d *fakeDialog) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

type fakeToolbar struct {
	buttons map[string]func()
}

func (t *fakeToolbar) AddButton(label string, onClick func()) {
	t.buttons[label] = onClick
}

func (t *fakeToolbar) Trigger(label string) {
	if fn, ok := t.buttons[label]; ok {
		fn()
	}
}

type fakeToolbarProvider struct {
	toolbars map[string]*fakeToolbar
}

func newFakeToolbarProvider() *fakeToolbarProvider {
	return &fakeToolbarProvider{toolbars: make(map[string]*fakeToolbar)}
}

func (p *fakeToolbarProvider) DocumentToolbar(doc *notebook.Document) triage.Toolbar {
	tb, ok := p.toolbars[doc.ID()]
	if !ok {
		tb = &fakeToolbar{buttons: make(map[string]func())}
		p.toolbars[doc.ID()] = tb
	}
	return tb
}

// completerFunc adapts a function to the Completer interface.
type completerFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f completerFunc) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func errorCell(id, text string) *notebook.Cell {
	cell := notebook.NewCell(id, notebook.CellCode, "boom()")
	cell.SetOutputs([]notebook.Output{{
		Tag:  notebook.OutputError,
		Data: map[string]string{notebook.StderrKey: text},
	}})
	return cell
}

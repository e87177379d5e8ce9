package triage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/triage"
)

func newTestWatcher(t *testing.T) (*triage.Watcher, *fakeSurface, *triage.Decorations) {
	t.Helper()
	surface := newFakeSurface()
	deco := triage.NewDecorations(surface, func(*notebook.Cell, string) {})
	return triage.NewWatcher(deco), surface, deco
}

func TestWatcher_InitialScanFlagsExistingErrors(t *testing.T) {
	w, surface, _ := newTestWatcher(t)

	doc := notebook.NewDocument("nb1", "")
	doc.AddCell(errorCell("c1", "ValueError: bad input"))
	doc.AddCell(notebook.NewCell("c2", notebook.CellCode, "print(1)"))
	doc.AddCell(notebook.NewCell("c3", notebook.CellMarkdown, "# prose"))

	w.Track(doc)

	assert.Equal(t, 1, surface.liveControls("c1"))
	assert.Equal(t, 0, surface.liveControls("c2"))
	assert.Equal(t, 0, surface.liveControls("c3"))
}

func TestWatcher_NilDocumentIsNoOp(t *testing.T) {
	w, _, _ := newTestWatcher(t)
	w.Track(nil)
	w.Replace(nil)
}

func TestWatcher_OutputMutationTriggersRescan(t *testing.T) {
	w, surface, _ := newTestWatcher(t)

	doc := notebook.NewDocument("nb1", "")
	cell := notebook.NewCell("c1", notebook.CellCode, "1/0")
	doc.AddCell(cell)
	w.Track(doc)
	assert.Equal(t, 0, surface.liveControls("c1"))

	// The cell executes and errors.
	cell.SetOutputs([]notebook.Output{{
		Tag:  notebook.OutputError,
		Data: map[string]string{notebook.StderrKey: "ZeroDivisionError: division by zero"},
	}})
	assert.Equal(t, 1, surface.liveControls("c1"))

	// Unrelated mutations on another cell never duplicate the control.
	other := notebook.NewCell("c2", notebook.CellCode, "print(1)")
	doc.AddCell(other)
	for i := 0; i < 3; i++ {
		other.SetOutputs([]notebook.Output{{Tag: notebook.OutputStream}})
	}
	assert.Equal(t, 1, surface.liveControls("c1"))

	// Successful re-execution clears the control.
	cell.SetOutputs([]notebook.Output{{Tag: notebook.OutputExecuteResult}})
	assert.Equal(t, 0, surface.liveControls("c1"))
}

func TestWatcher_CellAdditionTriggersScan(t *testing.T) {
	w, surface, _ := newTestWatcher(t)

	doc := notebook.NewDocument("nb1", "")
	w.Track(doc)

	doc.AddCell(errorCell("late", "RuntimeError: late failure"))
	assert.Equal(t, 1, surface.liveControls("late"))
}

func TestWatcher_CellRemovalDiscardsDecoration(t *testing.T) {
	w, surface, deco := newTestWatcher(t)

	doc := notebook.NewDocument("nb1", "")
	doc.AddCell(errorCell("c1", "boom"))
	w.Track(doc)
	require.Equal(t, 1, surface.liveControls("c1"))

	doc.RemoveCell("c1")
	assert.Equal(t, 0, surface.liveControls("c1"))
	_, ok := deco.BoundText("c1")
	assert.False(t, ok)
}

func TestWatcher_ReplaceCarriesDecorationsByCellID(t *testing.T) {
	w, surface, _ := newTestWatcher(t)

	first := notebook.NewDocument("nb.ipynb", "nb.ipynb")
	first.AddCell(errorCell("keep", "boom"))
	first.AddCell(errorCell("drop", "other"))
	w.Track(first)
	require.Equal(t, 1, surface.liveControls("keep"))
	require.Equal(t, 1, surface.liveControls("drop"))

	second := notebook.NewDocument("nb.ipynb", "nb.ipynb")
	second.AddCell(errorCell("keep", "boom"))
	w.Replace(second)

	assert.Equal(t, 1, surface.liveControls("keep"), "unchanged snapshot keeps its single control")
	assert.Equal(t, 0, surface.liveControls("drop"), "removed cell's decoration is discarded")
}

func TestWatcher_ToolbarButtonOpensSettingsDialog(t *testing.T) {
	surface := newFakeSurface()
	deco := triage.NewDecorations(surface, func(*notebook.Cell, string) {})
	session := config.NewSession()
	dialog := &fakeDialog{
		result: config.Settings{Credential: "k1", Language: "EN", PromptTemplate: "P"},
		accept: true,
	}
	toolbars := newFakeToolbarProvider()

	w := triage.NewWatcher(deco, triage.WithSettingsDialog(session, dialog, toolbars))

	doc := notebook.NewDocument("nb1", "")
	w.Track(doc)

	tb := toolbars.toolbars["nb1"]
	require.NotNil(t, tb)
	require.Contains(t, tb.buttons, triage.SettingsButtonLabel)

	tb.Trigger(triage.SettingsButtonLabel)
	assert.Equal(t, 1, dialog.Opened())
	assert.Equal(t, config.Settings{Credential: "k1", Language: "EN", PromptTemplate: "P"}, session.Snapshot())

	// Cancelled edits leave the session untouched.
	dialog.accept = false
	dialog.result = config.Settings{Credential: "other"}
	tb.Trigger(triage.SettingsButtonLabel)
	assert.Equal(t, "k1", session.Snapshot().Credential)
}

func TestWatcher_EmptyDiagnosticFallsBackToRicherPayload(t *testing.T) {
	w, _, deco := newTestWatcher(t)

	doc := notebook.NewDocument("nb1", "")
	cell := notebook.NewCell("c1", notebook.CellCode, "x")
	cell.SetOutputs([]notebook.Output{{
		Tag:  notebook.OutputError,
		Data: map[string]string{notebook.HTMLKey: "<p>kernel <b>died</b></p>"},
	}})
	doc.AddCell(cell)
	w.Track(doc)

	text, ok := deco.BoundText("c1")
	require.True(t, ok)
	assert.Contains(t, text, "kernel")
	assert.Contains(t, text, "**died**")
}

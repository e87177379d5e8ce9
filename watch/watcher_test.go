package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const erroredNotebook = `{
  "nbformat": 4,
  "cells": [
    {
      "cell_type": "code",
      "id": "c1",
      "source": "1/0",
      "outputs": [
        {"output_type": "error", "ename": "ZeroDivisionError", "evalue": "division by zero"}
      ]
    }
  ]
}`

const cleanNotebook = `{
  "nbformat": 4,
  "cells": [
    {"cell_type": "code", "id": "c1", "source": "1/1", "outputs": []}
  ]
}`

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := NewWatcher(Config{
		Roots:    []string{root},
		Patterns: []string{"**/*.ipynb"},
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return w
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcher_LoadExisting(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "run.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(erroredNotebook), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("# notes"), 0644))

	w := newTestWatcher(t, root)
	defer w.watcher.Close()

	docs, err := w.LoadExisting()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, path, docs[0].Path())
	require.Len(t, docs[0].Cells(), 1)
}

func TestWatcher_EmitsCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(root, "run.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(cleanNotebook), 0644))

	ev := waitEvent(t, w.Events())
	require.NoError(t, ev.Err)
	assert.Equal(t, OpCreate, ev.Operation)
	require.NotNil(t, ev.Doc)
	assert.Equal(t, path, ev.Doc.Path())

	// The kernel re-executes and writes an error output into the file.
	require.NoError(t, os.WriteFile(path, []byte(erroredNotebook), 0644))

	ev = waitEvent(t, w.Events())
	require.NoError(t, ev.Err)
	assert.Equal(t, OpModify, ev.Operation)
	require.NotNil(t, ev.Doc)

	require.NoError(t, os.Remove(path))

	ev = waitEvent(t, w.Events())
	assert.Equal(t, OpDelete, ev.Operation)
	assert.Nil(t, ev.Doc)
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "run.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(cleanNotebook), 0644))

	w := newTestWatcher(t, root)
	_, err := w.LoadExisting()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Rewrite with identical content: the hash check suppresses the event.
	require.NoError(t, os.WriteFile(path, []byte(cleanNotebook), 0644))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for unchanged content: %+v", ev)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ReportsParseFailure(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(root, "broken.ipynb")
	require.NoError(t, os.WriteFile(path, []byte("{torn write"), 0644))

	ev := waitEvent(t, w.Events())
	assert.Error(t, ev.Err)
	assert.Nil(t, ev.Doc)
}

package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/nbtriage/notebook"
)

// Config configures the notebook file watcher.
type Config struct {
	// Roots are the directories to watch recursively.
	Roots []string

	// Patterns select notebook files under the roots (doublestar globs).
	Patterns []string

	// Debounce is how long to wait for more changes before processing.
	Debounce time.Duration

	// Logger for watch events.
	Logger *slog.Logger
}

// Operation indicates the type of document change.
type Operation string

const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Event reports one notebook document change.
type Event struct {
	// Path is the notebook file path.
	Path string

	// Operation is the type of change.
	Operation Operation

	// Doc is the parsed document (nil for delete operations).
	Doc *notebook.Document

	// Err is set when the file changed but could not be parsed.
	Err error
}

// Watcher watches for notebook file changes and emits parsed documents.
type Watcher struct {
	config  Config
	matcher *Matcher
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// Debouncing: collect changes before processing.
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Content hashes to skip no-op writes (editors and kernels rewrite
	// notebook files wholesale).
	hashMu sync.RWMutex
	hashes map[string]string

	events chan Event
}

// NewWatcher creates a notebook file watcher.
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce == 0 {
		config.Debounce = 200 * time.Millisecond
	}

	return &Watcher{
		config:  config,
		matcher: NewMatcher(config.Roots, config.Patterns),
		watcher: fsw,
		logger:  logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan Event, 64),
	}, nil
}

// Events returns the channel of document change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching the roots and processing events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	for _, root := range w.config.Roots {
		if err := w.addWatchesRecursive(root); err != nil {
			return err
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Notebook watcher started",
		"roots", w.config.Roots,
		"patterns", w.config.Patterns,
		"debounce", w.config.Debounce)
	return nil
}

// Stop stops the watcher. The events channel is left open; consumers exit
// through their context.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// LoadExisting parses all notebooks currently under the roots and records
// their hashes, so the initial scan and change detection share state.
func (w *Watcher) LoadExisting() ([]*notebook.Document, error) {
	var docs []*notebook.Document
	for _, root := range w.config.Roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if skipDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if !w.matcher.Match(path) {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				w.logger.Warn("Failed to read notebook", "path", path, "error", err)
				return nil
			}
			doc, err := notebook.Decode(data, path)
			if err != nil {
				w.logger.Warn("Failed to parse notebook", "path", path, "error", err)
				return nil
			}

			w.setHash(path, hashContent(data))
			docs = append(docs, doc)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func skipDir(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".") ||
		base == "node_modules" || base == "__pycache__"
}

func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.matcher.Match(path) {
		// New directories need their own watch.
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() && !skipDir(path) {
				if err := w.watcher.Add(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		w.processChange(path, op)
	}
}

func (w *Watcher) processChange(path string, op fsnotify.Op) {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.dropHash(path)
			w.sendEvent(Event{Path: path, Operation: OpDelete})
			return
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.dropHash(path)
			w.sendEvent(Event{Path: path, Operation: OpDelete})
		} else {
			w.sendEvent(Event{Path: path, Err: err})
		}
		return
	}

	hash := hashContent(data)
	oldHash, known := w.getHash(path)
	if known && oldHash == hash {
		return
	}
	w.setHash(path, hash)

	operation := OpModify
	if !known {
		operation = OpCreate
	}

	doc, err := notebook.Decode(data, path)
	if err != nil {
		// Kernels write notebooks non-atomically; a torn read will settle
		// on the next change.
		w.sendEvent(Event{Path: path, Operation: operation, Err: err})
		return
	}

	w.sendEvent(Event{Path: path, Operation: operation, Doc: doc})
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Notebook change", "path", event.Path, "op", event.Operation)
	default:
		w.logger.Warn("Event channel full, dropping event", "path", event.Path)
	}
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

func (w *Watcher) dropHash(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

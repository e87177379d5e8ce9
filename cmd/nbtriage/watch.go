package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/nbtriage/config"
	"github.com/c360studio/nbtriage/console"
	"github.com/c360studio/nbtriage/llm"
	"github.com/c360studio/nbtriage/metrics"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/publish"
	"github.com/c360studio/nbtriage/triage"
	"github.com/c360studio/nbtriage/watch"
)

func watchCmd(configPath *string) *cobra.Command {
	var auto bool

	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Watch notebook files and triage errored cells",
		Long: `Watch notebook files under the configured roots. Each errored code cell
gets a triage control; with --auto, newly flagged cells are analyzed as
soon as they appear.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Watch.Roots = args
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return runWatch(cmd.Context(), cfg, auto)
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Analyze newly flagged cells without waiting for activation")

	return cmd
}

func runWatch(parent context.Context, cfg *config.Config, auto bool) error {
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := newSession()
	client := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name,
		llm.WithTimeout(cfg.Model.Timeout),
		llm.WithLogger(logger))
	surface := console.NewSurface(os.Stdout)

	var events *publish.Publisher
	if cfg.NATS.URL != "" {
		p, err := publish.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer p.Close()
		events = p
	}

	var mtr *metrics.Metrics
	if cfg.Metrics.Addr != "" {
		registry := metrics.NewRegistry()
		mtr = metrics.New(registry)
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(registry))
		server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	// The decoration activation closure needs the runner, and the runner
	// needs the decorations. Declare the runner first so the closure can
	// capture it; it is assigned before any cell can be activated.
	var runner *triage.Runner
	decorations := triage.NewDecorations(surface, func(cell *notebook.Cell, errorText string) {
		go func() {
			if err := runner.Run(ctx, cell, errorText); err != nil {
				logger.Debug("analysis finished with error", "cell", cell.ID(), "error", err)
			}
		}()
	})
	runner = triage.NewRunner(session, client, surface, decorations,
		triage.WithDialog(console.Dialog{}),
		triage.WithEvents(events),
		triage.WithMetrics(mtr),
		triage.WithRunnerLogger(logger))

	cellWatcher := triage.NewWatcher(decorations,
		triage.WithSettingsDialog(session, console.Dialog{}, surface),
		triage.WithWatcherEvents(events),
		triage.WithWatcherMetrics(mtr),
		triage.WithWatcherLogger(logger))

	fileWatcher, err := watch.NewWatcher(watch.Config{
		Roots:    cfg.Watch.Roots,
		Patterns: cfg.Watch.Patterns,
		Debounce: cfg.Watch.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	docs, err := fileWatcher.LoadExisting()
	if err != nil {
		return fmt.Errorf("load notebooks: %w", err)
	}
	pathIDs := make(map[string]string, len(docs))
	for _, doc := range docs {
		pathIDs[doc.Path()] = doc.ID()
		cellWatcher.Track(doc)
	}
	logger.Info("tracking notebooks", "count", len(docs))

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer func() { _ = fileWatcher.Stop() }()

	autoRun := newAutoRunner(ctx, runner, decorations, auto, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case event, ok := <-fileWatcher.Events():
			if !ok {
				return nil
			}
			handleWatchEvent(event, cellWatcher, pathIDs, autoRun, logger)
		}
	}
}

func handleWatchEvent(event watch.Event, cellWatcher *triage.Watcher, pathIDs map[string]string, autoRun *autoRunner, logger *slog.Logger) {
	switch event.Operation {
	case watch.OpDelete:
		if id, ok := pathIDs[event.Path]; ok {
			cellWatcher.Untrack(id)
			delete(pathIDs, event.Path)
			logger.Info("notebook removed", "path", event.Path)
		}
	case watch.OpCreate, watch.OpModify:
		if event.Err != nil {
			logger.Warn("notebook unreadable", "path", event.Path, "error", event.Err)
			return
		}
		if event.Doc == nil {
			return
		}
		if _, known := pathIDs[event.Path]; known {
			cellWatcher.Replace(event.Doc)
		} else {
			cellWatcher.Track(event.Doc)
		}
		pathIDs[event.Path] = event.Doc.ID()
		autoRun.sweep(event.Doc)
	}
}

// autoRunner triggers analyses for newly flagged cells when --auto is set.
// It remembers the last error text analyzed per cell so an unchanged error
// is not re-analyzed on every file save.
type autoRunner struct {
	ctx         context.Context
	runner      *triage.Runner
	decorations *triage.Decorations
	enabled     bool
	logger      *slog.Logger

	mu       sync.Mutex
	analyzed map[string]string
}

func newAutoRunner(ctx context.Context, runner *triage.Runner, decorations *triage.Decorations, enabled bool, logger *slog.Logger) *autoRunner {
	return &autoRunner{
		ctx:         ctx,
		runner:      runner,
		decorations: decorations,
		enabled:     enabled,
		logger:      logger,
		analyzed:    make(map[string]string),
	}
}

func (a *autoRunner) sweep(doc *notebook.Document) {
	if !a.enabled {
		return
	}
	for _, cell := range doc.Cells() {
		text, ok := a.decorations.BoundText(cell.ID())
		if !ok {
			continue
		}
		a.mu.Lock()
		last, seen := a.analyzed[cell.ID()]
		if seen && last == text {
			a.mu.Unlock()
			continue
		}
		a.analyzed[cell.ID()] = text
		a.mu.Unlock()

		cell, text := cell, text
		go func() {
			if err := a.runner.Run(a.ctx, cell, text); err != nil {
				a.logger.Debug("auto analysis finished with error", "cell", cell.ID(), "error", err)
			}
		}()
	}
}

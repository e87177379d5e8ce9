package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/nbtriage/console"
	"github.com/c360studio/nbtriage/llm"
	"github.com/c360studio/nbtriage/notebook"
	"github.com/c360studio/nbtriage/triage"
)

func analyzeCmd(configPath *string) *cobra.Command {
	var apiKey string

	cmd := &cobra.Command{
		Use:   "analyze <notebook.ipynb> [more.ipynb...]",
		Short: "Analyze errored cells in notebook files once and exit",
		Long: `Read the given notebook files, find errored code cells, and print an
explanation for each. The credential comes from --api-key, the
NBTRIAGE_API_KEY environment variable, or an interactive prompt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := slog.Default()
			session := newSession()
			if apiKey != "" {
				settings := session.Snapshot()
				settings.Credential = apiKey
				session.Apply(settings)
			}

			client := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name,
				llm.WithTimeout(cfg.Model.Timeout),
				llm.WithLogger(logger))
			surface := console.NewSurface(os.Stdout)

			// One-shot mode never reacts to activation; analyses are
			// driven directly below, so the closure stays empty.
			decorations := triage.NewDecorations(surface, func(*notebook.Cell, string) {})
			runner := triage.NewRunner(session, client, surface, decorations,
				triage.WithDialog(console.Dialog{}),
				triage.WithRunnerLogger(logger))
			cellWatcher := triage.NewWatcher(decorations, triage.WithWatcherLogger(logger))

			failures := 0
			flagged := 0
			for _, path := range args {
				doc, err := notebook.ReadFile(path)
				if err != nil {
					logger.Error("cannot read notebook", "path", path, "error", err)
					failures++
					continue
				}
				cellWatcher.Track(doc)

				for _, cell := range doc.Cells() {
					text, ok := decorations.BoundText(cell.ID())
					if !ok {
						continue
					}
					flagged++
					if err := runner.Run(cmd.Context(), cell, text); err != nil {
						failures++
					}
				}
			}

			if flagged == 0 {
				fmt.Println("No errored cells found.")
			}
			if failures > 0 {
				return fmt.Errorf("%d analysis failure(s)", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "API credential (overrides NBTRIAGE_API_KEY)")

	return cmd
}

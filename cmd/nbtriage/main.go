// Package main provides the nbtriage binary entry point. nbtriage watches
// notebook documents for errored cells and explains the errors through an
// OpenAI-compatible completion endpoint.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/nbtriage/config"
)

const (
	Version = "0.1.0"
	appName = "nbtriage"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Error triage for notebook documents",
		Long: `nbtriage watches notebook documents for errored code cells, attaches a
triage action to each, and on activation asks an OpenAI-compatible
completion endpoint to explain the error, rendering the explanation
beneath the cell.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(watchCmd(&configPath))
	cmd.AddCommand(analyzeCmd(&configPath))
	cmd.AddCommand(configureCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func configureLogging(logLevel string) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig loads the service configuration, layering an optional file
// over defaults.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newSession creates the session store, seeding the credential from the
// environment when present. Settings live for the process only.
func newSession() *config.Session {
	session := config.NewSession()
	if key := os.Getenv("NBTRIAGE_API_KEY"); key != "" {
		settings := session.Snapshot()
		settings.Credential = key
		session.Apply(settings)
	}
	return session
}

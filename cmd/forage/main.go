package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-agent/forage/backend"
	"github.com/use-agent/forage/config"
)

// errOperationFailed marks an operation whose failure envelope was already
// printed; main exits non-zero without logging a second error.
var errOperationFailed = errors.New("operation failed")

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	// ── 3. Run the command tree ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errOperationFailed) {
			slog.Error("command failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "forage",
		Short: "Fetch and search the web through a real browser",
		Long: `forage drives a real Chrome instance to fetch pages as Markdown and to
run web searches, printing exactly one JSON result object on stdout per
invocation. The exit code is 0 only when the operation succeeded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	orch := backend.NewOrchestrator(cfg)
	root.AddCommand(getCmdFetch(cfg, orch))
	root.AddCommand(getCmdSearch(cfg, orch))
	return root
}

// printEnvelope writes the result envelope to stdout. Stdout carries
// nothing else; all logging goes to stderr.
func printEnvelope(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Package cli implements the raggy command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"raggy/internal/config"
)

// Execute loads the configuration, configures logging and runs the root
// command until it returns or the process is interrupted. It returns the
// process exit code.
func Execute() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	slog.SetDefault(newLogger(cfg, os.Stderr))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(func(ctx context.Context) (*App, error) {
		return NewApp(ctx, cfg)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// NewRootCommand builds the raggy command tree. Every subcommand obtains its
// App from newApp.
func NewRootCommand(newApp AppFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "raggy",
		Short: "Local retrieval backend over your documents",
		Long: `raggy ingests text, Markdown and PDF files into a local embedding store
and answers similarity searches over them, from the command line or over HTTP.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		serveCmd(newApp),
		ingestCmd(newApp),
		reingestCmd(newApp),
		resetCmd(newApp),
		searchCmd(newApp),
		documentsCmd(newApp),
		statsCmd(newApp),
		historyCmd(newApp),
		probeCmd(newApp),
		indexCmd(newApp),
		chunkCmd(newApp),
	)
	return root
}

// withApp builds the App, runs fn and closes the App.
func withApp(newApp AppFactory, fn func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				slog.WarnContext(cmd.Context(), "failed to close resources", "error", err)
			}
		}()
		return fn(cmd, args, app)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

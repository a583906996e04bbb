// Package cmd provides the CLI commands.
//
// Commands:
//   - ask: one-shot grounded question answering
//   - plan: seasonal maintenance checklist
//   - troubleshoot: interactive two-step diagnostic session
//   - parts: parts and consumables lookup
//   - serve: HTTP API server
//   - version: build information
//
// All commands load configuration, assemble the application via
// internal/app, and release resources on exit.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/homewarden/homewarden/internal/app"
	"github.com/homewarden/homewarden/internal/config"
	"github.com/homewarden/homewarden/internal/log"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "homewarden",
	Short: "Home equipment advisor grounded in your appliance manuals",
	Long: `Homewarden answers questions about the equipment in your house using
your own indexed manuals and installation documents. Every answer cites
the source document it came from; hazardous symptoms stop the workflow
and direct you to a professional.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// newLogger builds the process logger from flags and environment.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugFlag || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}

// setupApp loads configuration and assembles the application. The
// returned context is cancelled on SIGINT/SIGTERM.
func setupApp() (context.Context, context.CancelFunc, *app.App, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, newLogger())
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("initializing application: %w", err)
	}

	return ctx, cancel, a, nil
}

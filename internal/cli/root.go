// Package cli implements the showcase command line.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"showcase-tracker/internal/constants"
	fxmodules "showcase-tracker/internal/fx"
	"showcase-tracker/internal/logger"
	"showcase-tracker/internal/messages"
	"showcase-tracker/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// deps is what a command needs from the application graph.
type deps struct {
	ingest   *service.IngestService
	refresh  *service.RefreshService
	messages *messages.Messages
}

// NewRootCmd builds the command tree. extra is appended to the application
// graph of every command.
func NewRootCmd(extra ...fx.Option) *cobra.Command {
	root := &cobra.Command{
		Use:           "showcase",
		Short:         "Normalize and catalogue character showcase snapshots",
		Long:          "Offline driver for the showcase ingestion pipeline. State is written under DATA_DIR, logs go to stderr.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIngestCmd(extra),
		newRefreshCmd(extra),
		newArtifactsCmd(extra),
	)
	return root
}

// withApp starts the core graph, runs fn, then stops the graph so queued
// background work drains before the command exits.
func withApp(cmd *cobra.Command, extra []fx.Option, fn func(ctx context.Context, d deps) error) error {
	var d deps
	opts := append([]fx.Option{
		fxmodules.Core,
		fx.NopLogger,
		fx.Replace(logger.NewWriter(cmd.ErrOrStderr(), logger.ParseLevel(os.Getenv("LOG_LEVEL")))),
		fx.Populate(&d.ingest, &d.refresh, &d.messages),
	}, extra...)
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, d)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.BackgroundTaskTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// report prints the localized message for err and returns err.
func report(cmd *cobra.Command, d deps, uid string, err error) error {
	msg := d.messages.ForError(d.messages.Default(), uid, d.refresh.Provider(), err)
	_, _ = io.WriteString(cmd.ErrOrStderr(), msg+"\n")
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

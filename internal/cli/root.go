// Package cli holds the operator commands of the schedula binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"schedula/booking/internal/app"
	"schedula/booking/internal/config"
)

type options struct {
	logLevel string
	stdout   io.Writer
	stderr   io.Writer
	// loadConfig is swapped in tests.
	loadConfig func() (config.Config, error)
}

func (o *options) logger() *slog.Logger {
	return app.NewLogger(o.stderr, o.logLevel, "schedula")
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
	})
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "schedula",
		Short:         "Query practitioner availability and run booking reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.stdout)
	root.SetErr(opts.stderr)
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newSlotsCmd(opts))
	root.AddCommand(newReportCmd(opts))
	return root
}

func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

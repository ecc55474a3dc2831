package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrej220/hamagent/internal/lg"
	"github.com/spf13/cobra"
)

// loggedError has already been written to the agent log.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

func newRootCmd() *cobra.Command {
	opts := NewOptions()
	cmd := &cobra.Command{
		Use:           SERVICENAME,
		Short:         "Run shell commands on a schedule and report their output",
		Long:          PROJECTNAME + " host agent: runs each configured command on its own interval and posts the result to the collector.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := lg.New(&opts.Log)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(lg.Attach(ctx, logger), opts, logger); err != nil {
				logger.Error("agent failed", lg.Err(err))
				return loggedError{err}
			}
			return nil
		},
	}
	opts.BindFlags(cmd.Flags())
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		var logged loggedError
		if !errors.As(err, &logged) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// Package main provides the CLI entry point for docbench, a MongoDB
// schema layout benchmarking tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/config"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitUsage
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(cfg, logger)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var ue *usageError
		if errors.As(err, &ue) {
			fmt.Fprint(os.Stderr, ue.cmd.UsageString())
		}

		return exitCode(err)
	}

	return exitOK
}

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "docbench",
		Short: "MongoDB schema layout benchmarking tool",
		Long: `Docbench loads the same message and sender data into a normalized
and an embedded MongoDB layout, then times a fixed set of queries before
and after creating secondary indices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{cmd: c, err: err}
	})

	root.AddCommand(
		newLoadCmd(cfg, logger),
		newQueryCmd(cfg, logger),
		newCompareCmd(cfg, logger),
		newGenerateCmd(cfg, logger),
	)

	return root
}

// usageError is a malformed invocation. The usage text is printed with it.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// configError is an invalid setting after flags are applied.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		ue *usageError
		ce *configError
	)

	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ue), errors.As(err, &ce):
		return exitUsage
	default:
		return exitRuntime
	}
}

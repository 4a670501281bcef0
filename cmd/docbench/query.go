package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/bench"
	"github.com/weiihann/docbench/config"
	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/report"
	"github.com/weiihann/docbench/store"
)

func newQueryCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		layoutName string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "query <port>",
		Short: "Time the query set before and after creating indices",
		Long: `Run Q1 to Q3 without secondary indices, create the layout's
indices, run Q1 to Q3 again and finish with the Q4 credit update.`,
		Args: portArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cfg, args[0], layoutName, outputJSON)
			if err != nil {
				return err
			}

			return runQuery(cmd.Context(), logger, cmd.OutOrStdout(), s)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&layoutName, "layout", string(layout.Normalized),
		"Collection layout: normalized or embedded")
	addTimeoutFlag(cmd, &cfg)
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

func addTimeoutFlag(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().DurationVar(&cfg.QueryTimeout, "timeout", cfg.QueryTimeout,
		"Server-side time limit for each query")
}

func runQuery(ctx context.Context, logger *slog.Logger, out io.Writer, s settings) error {
	client, err := connect(ctx, logger, s)
	if err != nil {
		return err
	}
	defer client.Close()

	r, err := queryLayout(ctx, logger, client, s, s.layout, progress(out, s))
	if err != nil {
		return err
	}

	if s.outputJSON {
		if err := report.GenerateJSON(out, r); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		fmt.Fprintln(out)

		if err := report.Generate(out, r); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	return failures(r)
}

// progress is where per-query lines go. JSON output keeps stdout clean.
func progress(out io.Writer, s settings) io.Writer {
	if s.outputJSON {
		return os.Stderr
	}

	return out
}

func queryLayout(
	ctx context.Context,
	logger *slog.Logger,
	client *store.Client,
	s settings,
	lay layout.Layout,
	out io.Writer,
) (*bench.Report, error) {
	name := s.Databases().Resolve(lay)

	suite, err := bench.NewSuite(client.Database(name), lay, s.QueryTimeout)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	r, err := bench.NewRunner(out, s.QueryTimeout, logger).
		Run(ctx, suite, bench.Report{Layout: lay, Database: name})
	if err != nil {
		return r, fmt.Errorf("query %s: %w", lay, err)
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("run_id", r.RunID),
		slog.String("layout", lay.String()),
		slog.Duration("elapsed", time.Since(start)),
	)

	return r, nil
}

func failures(reports ...*bench.Report) error {
	n := 0
	for _, r := range reports {
		n += r.Failed()
	}

	if n > 0 {
		return fmt.Errorf("%d queries failed", n)
	}

	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/bench"
	"github.com/weiihann/docbench/config"
	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/report"
)

func newCompareCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "compare <port>",
		Short: "Load and query every layout, then compare indexed timings",
		Args:  portArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cfg, args[0], "", outputJSON)
			if err != nil {
				return err
			}

			return runCompare(cmd.Context(), logger, cmd.OutOrStdout(), s)
		},
	}

	addInputFlags(cmd, &cfg)
	addTimeoutFlag(cmd, &cfg)
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

func runCompare(ctx context.Context, logger *slog.Logger, out io.Writer, s settings) error {
	messages, senders, err := readInputs(ctx, logger, s)
	if err != nil {
		return err
	}

	client, err := connect(ctx, logger, s)
	if err != nil {
		return err
	}
	defer client.Close()

	lines := progress(out, s)
	reports := make([]*bench.Report, 0, len(layout.Known()))

	for _, lay := range layout.Known() {
		fmt.Fprintf(lines, "== %s (%s) ==\n", lay, s.Databases().Resolve(lay))

		if _, err := loadLayout(ctx, logger, client, s, lay, messages, senders); err != nil {
			return err
		}

		r, err := queryLayout(ctx, logger, client, s, lay, lines)
		if err != nil {
			return err
		}

		reports = append(reports, r)

		fmt.Fprintln(lines)
	}

	if s.outputJSON {
		if err := report.GenerateJSON(out, reports); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else if err := report.GenerateComparison(out, reports); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	return failures(reports...)
}

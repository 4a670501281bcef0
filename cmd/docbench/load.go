package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/config"
	"github.com/weiihann/docbench/layout"
	"github.com/weiihann/docbench/loader"
	"github.com/weiihann/docbench/record"
	"github.com/weiihann/docbench/report"
	"github.com/weiihann/docbench/store"
)

func newLoadCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var (
		layoutName string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "load <port>",
		Short: "Recreate the benchmark collections from JSON files",
		Long: `Read the messages and senders files, drop the collections of the
chosen layout and insert the records in batches.`,
		Args: portArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(cfg, args[0], layoutName, outputJSON)
			if err != nil {
				return err
			}

			return runLoad(cmd.Context(), logger, cmd.OutOrStdout(), s)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&layoutName, "layout", string(layout.Normalized),
		"Collection layout: normalized or embedded")
	addInputFlags(cmd, &cfg)
	flags.BoolVar(&outputJSON, "json", false,
		"Output the load summary as JSON")

	return cmd
}

func addInputFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVar(&cfg.MessagesPath, "messages", cfg.MessagesPath,
		"Path to the messages JSON array")
	flags.StringVar(&cfg.SendersPath, "senders", cfg.SendersPath,
		"Path to the senders JSON array")
	flags.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize,
		"Documents per insert call")
}

func runLoad(ctx context.Context, logger *slog.Logger, out io.Writer, s settings) error {
	// Both files are read before anything is dropped.
	messages, senders, err := readInputs(ctx, logger, s)
	if err != nil {
		return err
	}

	client, err := connect(ctx, logger, s)
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := loadLayout(ctx, logger, client, s, s.layout, messages, senders)
	if err != nil {
		return err
	}

	if s.outputJSON {
		return report.GenerateJSON(out, summary)
	}

	return report.GenerateLoad(out, summary)
}

func readInputs(
	ctx context.Context,
	logger *slog.Logger,
	s settings,
) (messages, senders []record.Record, err error) {
	messages, err = record.ReadFile(s.MessagesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read messages: %w", err)
	}

	senders, err = record.ReadFile(s.SendersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read senders: %w", err)
	}

	logger.InfoContext(ctx, "input read",
		slog.Int("messages", len(messages)),
		slog.Int("senders", len(senders)),
	)

	return messages, senders, nil
}

func connect(ctx context.Context, logger *slog.Logger, s settings) (*store.Client, error) {
	return store.Connect(ctx, store.Options{
		Host:           s.Host,
		Port:           s.port,
		ConnectTimeout: s.ConnectTimeout,
	}, logger)
}

func loadLayout(
	ctx context.Context,
	logger *slog.Logger,
	client *store.Client,
	s settings,
	lay layout.Layout,
	messages, senders []record.Record,
) (*loader.Summary, error) {
	name := s.Databases().Resolve(lay)

	l, err := loader.New(loader.Mongo(client.Database(name)), name, s.BatchSize, logger)
	if err != nil {
		return nil, err
	}

	summary, err := l.Load(ctx, lay, messages, senders)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", lay, err)
	}

	logger.InfoContext(ctx, "load complete",
		slog.String("layout", lay.String()),
		slog.Duration("elapsed", summary.Elapsed()),
	)

	return summary, nil
}

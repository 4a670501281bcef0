package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/config"
	"github.com/weiihann/docbench/workload"
)

type generateConfig struct {
	messagesPath string
	sendersPath  string
	gen          workload.Config
}

func newGenerateCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	gc := generateConfig{
		messagesPath: cfg.MessagesPath,
		sendersPath:  cfg.SendersPath,
	}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic senders and messages dataset",
		Long: `Generate deterministic messages and senders JSON files that the
load command can read. Messages per sender follow the chosen distribution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), logger, gc)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&gc.messagesPath, "messages", gc.messagesPath,
		"Output path for the messages JSON array")
	flags.StringVar(&gc.sendersPath, "senders", gc.sendersPath,
		"Output path for the senders JSON array")
	flags.IntVar(&gc.gen.NumSenders, "num-senders", 1000,
		"Number of senders to create")
	flags.IntVar(&gc.gen.NumMessages, "num-messages", 100000,
		"Number of messages to create")
	flags.StringVar(&gc.gen.Distribution, "distribution", "power-law",
		"Messages per sender: power-law, uniform, exponential")
	flags.Int64Var(&gc.gen.Seed, "seed", 0,
		"Random seed (0 = use current time)")
	flags.Float64Var(&gc.gen.ZeroCredit, "zero-credit", 0.1,
		"Fraction of senders with zero credit")
	flags.IntVar(&gc.gen.MaxCredit, "max-credit", 200,
		"Upper bound for non-zero credits")

	return cmd
}

func runGenerate(ctx context.Context, logger *slog.Logger, gc generateConfig) error {
	if err := gc.gen.Validate(); err != nil {
		return &configError{err: err}
	}

	if gc.gen.Seed == 0 {
		gc.gen.Seed = time.Now().UnixNano()
	}

	mf, err := os.Create(gc.messagesPath)
	if err != nil {
		return fmt.Errorf("create messages file: %w", err)
	}
	defer mf.Close()

	sf, err := os.Create(gc.sendersPath)
	if err != nil {
		return fmt.Errorf("create senders file: %w", err)
	}
	defer sf.Close()

	summary, err := workload.NewGenerator(gc.gen).Generate(mf, sf)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if err := mf.Close(); err != nil {
		return fmt.Errorf("close messages file: %w", err)
	}

	if err := sf.Close(); err != nil {
		return fmt.Errorf("close senders file: %w", err)
	}

	logger.InfoContext(ctx, "dataset generated",
		slog.String("messages_path", gc.messagesPath),
		slog.String("senders_path", gc.sendersPath),
		slog.Int64("seed", gc.gen.Seed),
		slog.Int("senders", summary.Senders),
		slog.Int("messages", summary.Messages),
		slog.Int("zero_credit_senders", summary.ZeroCreditSenders),
		slog.Int("top_sender_messages", summary.TopSenderCount),
	)

	return nil
}

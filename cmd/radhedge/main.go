package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"radhedge/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "radhedge",
		Short:        "RadHedge investment pool registry",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("oracle", "", "price oracle address")
	flags.String("dex", "", "exchange address")
	flags.String("base-currency", "", "base currency token address")
	flags.String("deployer", config.DefaultDeployer, "address local pools are derived from")
	flags.String("journal", "./data/pools.jsonl", "pool journal JSONL path")
	flags.Duration("lock-timeout", 10*time.Second, "how long to wait for another process holding the journal")
	flags.String("pg-dsn", "", "Postgres DSN, replaces the JSONL journal when set")
	flags.String("rpc", "", "optional RPC URL used to describe the base currency")
	flags.Int("max-retries", 3, "maximum RPC retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	createCmd := &cobra.Command{
		Use:   "create-pool",
		Short: "Create an investment pool and print its manager badge",
		RunE:  runCreatePool,
	}
	createCmd.Flags().String("fee", "", "performance fee in percent (0-20)")
	createCmd.Flags().String("name", "", "pool display name")
	createCmd.Flags().String("symbol", "", "pool symbol")
	_ = createCmd.MarkFlagRequired("fee")
	_ = createCmd.MarkFlagRequired("symbol")
	root.AddCommand(createCmd)

	existsCmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether a pool symbol is registered",
		RunE:  runExists,
	}
	existsCmd.Flags().String("symbol", "", "pool symbol")
	_ = existsCmd.MarkFlagRequired("symbol")
	root.AddCommand(existsCmd)

	lookupCmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve a pool by symbol or tracking token",
		RunE:  runLookup,
	}
	lookupCmd.Flags().String("symbol", "", "pool symbol")
	lookupCmd.Flags().String("tracking-token", "", "tracking token address")
	lookupCmd.MarkFlagsOneRequired("symbol", "tracking-token")
	lookupCmd.MarkFlagsMutuallyExclusive("symbol", "tracking-token")
	root.AddCommand(lookupCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"radhedge/internal/config"
	"radhedge/internal/model"
)

// poolView is what lookup prints.
type poolView struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	PerformanceFee decimal.Decimal `json:"performance_fee"`
	Pool           common.Address  `json:"pool"`
	TrackingToken  common.Address  `json:"tracking_token"`
}

func withPlatform(cmd *cobra.Command, fn func(ctx context.Context, p *platform) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(ctx, p)
}

func runCreatePool(cmd *cobra.Command, _ []string) error {
	feeInput, _ := cmd.Flags().GetString("fee")
	name, _ := cmd.Flags().GetString("name")
	symbol, _ := cmd.Flags().GetString("symbol")

	fee, err := decimal.NewFromString(feeInput)
	if err != nil {
		return fmt.Errorf("invalid fee %q: %w", feeInput, err)
	}

	return withPlatform(cmd, func(ctx context.Context, p *platform) error {
		badge, err := p.registry.NewInvestmentPool(ctx, fee, name, symbol)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), badge)
	})
}

func runExists(cmd *cobra.Command, _ []string) error {
	symbol, _ := cmd.Flags().GetString("symbol")
	return withPlatform(cmd, func(_ context.Context, p *platform) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), p.registry.PoolExists(symbol))
		return err
	})
}

func runLookup(cmd *cobra.Command, _ []string) error {
	symbol, _ := cmd.Flags().GetString("symbol")
	tracking, _ := cmd.Flags().GetString("tracking-token")
	if tracking != "" && !common.IsHexAddress(tracking) {
		return fmt.Errorf("invalid tracking token: %s", tracking)
	}

	return withPlatform(cmd, func(_ context.Context, p *platform) error {
		var (
			ref model.PoolRef
			err error
		)
		if tracking != "" {
			ref, err = p.registry.PoolByTrackingToken(common.HexToAddress(tracking))
		} else {
			ref, err = p.registry.PoolBySymbol(symbol)
		}
		if err != nil {
			return err
		}

		inv, ok := p.directory.Resolve(ref)
		if !ok {
			return fmt.Errorf("pool %s is registered but not deployed", ref)
		}
		return writeJSON(cmd.OutOrStdout(), poolView{
			Symbol:         inv.Symbol,
			Name:           inv.Name,
			PerformanceFee: inv.PerformanceFee,
			Pool:           inv.Address,
			TrackingToken:  inv.TrackingToken,
		})
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

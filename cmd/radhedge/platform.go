package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"radhedge/internal/chain"
	"radhedge/internal/config"
	"radhedge/internal/pool"
	"radhedge/internal/registry"
	"radhedge/internal/storage"
	"radhedge/internal/storage/postgres"
)

// platform is the process-wide owner of the registry and its collaborators.
type platform struct {
	registry  *registry.Registry
	directory *pool.Directory
	logger    *zap.Logger
	closers   []func()
}

func bootstrap(ctx context.Context, cfg config.Config, logger *zap.Logger) (*platform, error) {
	addrs, err := cfg.ParseAddresses()
	if err != nil {
		return nil, err
	}

	p := &platform{logger: logger}

	journal, err := p.openJournal(ctx, cfg)
	if err != nil {
		p.Close()
		return nil, err
	}
	records, err := journal.Load(ctx)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("load journal: %w", err)
	}

	factory := pool.NewLocalFactory(addrs.Deployer, pool.NewDirectory(), logger)
	if err := factory.Resume(records, pool.Collaborators{
		Oracle:       addrs.Oracle,
		Dex:          addrs.Dex,
		BaseCurrency: addrs.BaseCurrency,
	}); err != nil {
		p.Close()
		return nil, err
	}
	p.directory = factory.Directory()

	p.registry = registry.New(registry.Config{
		Oracle:       addrs.Oracle,
		Dex:          addrs.Dex,
		BaseCurrency: addrs.BaseCurrency,
	}, factory, journal, logger)
	if err := p.registry.Restore(records); err != nil {
		p.Close()
		return nil, fmt.Errorf("restore registry: %w", err)
	}

	if cfg.RPCURL != "" {
		p.describeBaseCurrency(ctx, cfg)
	}

	logger.Info("registry ready",
		zap.String("oracle", addrs.Oracle.Hex()),
		zap.String("dex", addrs.Dex.Hex()),
		zap.String("base_currency", addrs.BaseCurrency.Hex()),
		zap.Int("pools", p.registry.Len()),
	)

	return p, nil
}

func (p *platform) openJournal(ctx context.Context, cfg config.Config) (storage.Journal, error) {
	if cfg.PGDSN == "" {
		if cfg.Journal == "" {
			return nil, fmt.Errorf("journal path is required")
		}
		journal := storage.NewJsonlJournal(cfg.Journal)
		lockCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.LockTimeout > 0 {
			lockCtx, cancel = context.WithTimeout(ctx, cfg.LockTimeout)
		}
		defer cancel()
		if err := journal.Lock(lockCtx); err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() {
			if err := journal.Unlock(); err != nil {
				p.logger.Warn("unlock journal", zap.String("journal", cfg.Journal), zap.Error(err))
			}
		})
		return journal, nil
	}

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	p.closers = append(p.closers, store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// describeBaseCurrency logs the base currency's ERC20 metadata. Failures are
// logged and otherwise ignored.
func (p *platform) describeBaseCurrency(ctx context.Context, cfg config.Config) {
	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		p.logger.Warn("connect rpc", zap.Error(err))
		return
	}
	defer client.Close()

	if chainID, err := client.GetChainID(ctx); err == nil {
		p.logger.Info("rpc connected", zap.String("chain_id", chainID.String()))
	} else {
		p.logger.Warn("chain id unavailable", zap.Error(err))
	}

	meta, err := chain.FetchCurrencyMeta(ctx, client, p.registry.BaseCurrency(), chain.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, p.logger)
	if err != nil {
		p.logger.Warn("base currency metadata unavailable", zap.Error(err))
		return
	}
	p.logger.Info("base currency",
		zap.String("address", meta.Address),
		zap.String("symbol", meta.Symbol),
		zap.String("name", meta.Name),
		zap.Uint8("decimals", meta.Decimals),
	)
}

func (p *platform) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}

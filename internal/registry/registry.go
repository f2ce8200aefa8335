package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"radhedge/internal/model"
	"radhedge/internal/pool"
)

// Journal persists registered pools so a registry can be rebuilt on restart.
type Journal interface {
	Append(ctx context.Context, rec model.PoolRecord) error
}

// Config fixes the collaborators every pool is created with. None of the
// addresses are checked; they are forwarded to the factory as given.
type Config struct {
	Oracle       common.Address
	Dex          common.Address
	BaseCurrency common.Address
}

// Registry indexes investment pools by symbol and by tracking token.
// Both indexes are only ever written together, under mu.
type Registry struct {
	cfg     Config
	factory pool.Factory
	journal Journal
	logger  *zap.Logger
	now     func() time.Time

	mu            sync.RWMutex
	bySymbol      map[string]model.PoolRef
	byTrackingTok map[common.Address]model.PoolRef
}

// New builds an empty registry. journal may be nil.
func New(cfg Config, factory pool.Factory, journal Journal, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:           cfg,
		factory:       factory,
		journal:       journal,
		logger:        logger,
		now:           time.Now,
		bySymbol:      make(map[string]model.PoolRef),
		byTrackingTok: make(map[common.Address]model.PoolRef),
	}
}

func (r *Registry) Oracle() common.Address { return r.cfg.Oracle }

func (r *Registry) Dex() common.Address { return r.cfg.Dex }

func (r *Registry) BaseCurrency() common.Address { return r.cfg.BaseCurrency }

// PoolExists reports whether a pool is registered under the exact symbol.
func (r *Registry) PoolExists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.existsLocked(symbol)
}

// AssertPoolExists returns a *NotFoundError if symbol is not registered.
func (r *Registry) AssertPoolExists(symbol string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assertExistsLocked(symbol)
}

// AssertPoolAbsent returns an *AlreadyExistsError if symbol is registered.
func (r *Registry) AssertPoolAbsent(symbol string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assertAbsentLocked(symbol)
}

// PoolBySymbol returns the handle registered under symbol.
func (r *Registry) PoolBySymbol(symbol string) (model.PoolRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.bySymbol[symbol]
	if !ok {
		return model.PoolRef{}, &NotFoundError{Symbol: symbol}
	}
	return ref, nil
}

// PoolByTrackingToken returns the handle of the pool that minted token.
func (r *Registry) PoolByTrackingToken(token common.Address) (model.PoolRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byTrackingTok[token]
	if !ok {
		return model.PoolRef{}, &TrackingTokenNotFoundError{TrackingToken: token}
	}
	return ref, nil
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol)
}

// NewInvestmentPool creates a pool through the factory and registers it under
// symbol. The absent check, the factory call, the journal write and both index
// inserts happen under one exclusive lock, so concurrent calls for the same
// symbol cannot both succeed. Factory errors are returned as produced.
func (r *Registry) NewInvestmentPool(ctx context.Context, fee decimal.Decimal, name, symbol string) (model.ManagerBadge, error) {
	if r.factory == nil {
		return model.ManagerBadge{}, fmt.Errorf("pool factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.assertAbsentLocked(symbol); err != nil {
		r.logger.Warn("pool creation rejected", zap.String("symbol", symbol), zap.Error(err))
		return model.ManagerBadge{}, err
	}

	inst, err := r.factory.InstantiatePool(ctx, pool.Params{
		PerformanceFee: fee,
		Oracle:         r.cfg.Oracle,
		Dex:            r.cfg.Dex,
		BaseCurrency:   r.cfg.BaseCurrency,
		Name:           name,
		Symbol:         symbol,
	})
	if err != nil {
		return model.ManagerBadge{}, err
	}
	if inst.Pool.IsZero() {
		return model.ManagerBadge{}, fmt.Errorf("factory returned an empty pool reference for %q", symbol)
	}
	if _, ok := r.byTrackingTok[inst.TrackingToken]; ok {
		return model.ManagerBadge{}, fmt.Errorf("%w: %s", ErrDuplicateTrackingToken, inst.TrackingToken.Hex())
	}

	if r.journal != nil {
		rec := model.PoolRecord{
			Symbol:         symbol,
			Name:           name,
			PerformanceFee: fee,
			PoolAddress:    inst.Pool.Address,
			TrackingToken:  inst.TrackingToken,
			CreatedAt:      r.now().UTC(),
		}
		if err := r.journal.Append(ctx, rec); err != nil {
			return model.ManagerBadge{}, fmt.Errorf("journal pool %q: %w", symbol, err)
		}
	}

	r.bySymbol[symbol] = inst.Pool
	r.byTrackingTok[inst.TrackingToken] = inst.Pool

	r.logger.Info("pool created",
		zap.String("symbol", symbol),
		zap.String("name", name),
		zap.String("performance_fee", fee.String()),
		zap.String("pool", inst.Pool.String()),
		zap.String("tracking_token", inst.TrackingToken.Hex()),
	)

	return inst.Badge, nil
}

// Restore loads journaled pools into the indexes. It is all-or-nothing: on any
// conflict, with existing entries or within records, nothing is inserted.
func (r *Registry) Restore(records []model.PoolRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make(map[string]struct{}, len(records))
	tokens := make(map[common.Address]struct{}, len(records))
	for _, rec := range records {
		if _, dup := symbols[rec.Symbol]; dup || r.existsLocked(rec.Symbol) {
			return &AlreadyExistsError{Symbol: rec.Symbol}
		}
		if _, dup := tokens[rec.TrackingToken]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTrackingToken, rec.TrackingToken.Hex())
		}
		if _, dup := r.byTrackingTok[rec.TrackingToken]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateTrackingToken, rec.TrackingToken.Hex())
		}
		symbols[rec.Symbol] = struct{}{}
		tokens[rec.TrackingToken] = struct{}{}
	}

	for _, rec := range records {
		r.bySymbol[rec.Symbol] = rec.Ref()
		r.byTrackingTok[rec.TrackingToken] = rec.Ref()
	}

	if len(records) > 0 {
		r.logger.Info("registry restored", zap.Int("pools", len(records)))
	}
	return nil
}

func (r *Registry) existsLocked(symbol string) bool {
	_, ok := r.bySymbol[symbol]
	return ok
}

func (r *Registry) assertExistsLocked(symbol string) error {
	if !r.existsLocked(symbol) {
		return &NotFoundError{Symbol: symbol}
	}
	return nil
}

func (r *Registry) assertAbsentLocked(symbol string) error {
	if r.existsLocked(symbol) {
		return &AlreadyExistsError{Symbol: symbol}
	}
	return nil
}

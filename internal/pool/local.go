package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"radhedge/internal/model"
)

// LocalFactory instantiates pools in process. Pool addresses are derived from
// the deployer address and a nonce the same way contract addresses are, and
// each pool's tracking token is the first address the pool itself would deploy.
type LocalFactory struct {
	deployer  common.Address
	directory *Directory
	logger    *zap.Logger

	mu    sync.Mutex
	nonce uint64
}

// NewLocalFactory builds a factory that records every pool it creates in directory.
func NewLocalFactory(deployer common.Address, directory *Directory, logger *zap.Logger) *LocalFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if directory == nil {
		directory = NewDirectory()
	}
	return &LocalFactory{
		deployer:  deployer,
		directory: directory,
		logger:    logger,
	}
}

// Directory returns the directory the factory deploys into.
func (f *LocalFactory) Directory() *Directory {
	return f.directory
}

// InstantiatePool validates params, deploys a new pool and mints its manager badge.
func (f *LocalFactory) InstantiatePool(ctx context.Context, params Params) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return Instance{}, err
	}
	if err := ValidateFee(params.PerformanceFee); err != nil {
		return Instance{}, err
	}
	if strings.TrimSpace(params.Symbol) == "" {
		return Instance{}, fmt.Errorf("pool symbol is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	address := f.nextAddress()
	token := uuid.NewString()
	p := InvestmentPool{
		Address:        address,
		TrackingToken:  crypto.CreateAddress(address, 0),
		Name:           params.Name,
		Symbol:         params.Symbol,
		PerformanceFee: params.PerformanceFee,
		Oracle:         params.Oracle,
		Dex:            params.Dex,
		BaseCurrency:   params.BaseCurrency,
		badgeDigest:    crypto.Keccak256Hash([]byte(token)),
	}
	if err := f.directory.add(p); err != nil {
		return Instance{}, err
	}
	f.nonce++

	f.logger.Debug("pool deployed",
		zap.String("symbol", p.Symbol),
		zap.String("pool", p.Address.Hex()),
		zap.String("tracking_token", p.TrackingToken.Hex()),
	)

	return Instance{
		Pool:          model.PoolRef{Address: p.Address},
		Badge:         model.ManagerBadge{Pool: p.Address, Token: token},
		TrackingToken: p.TrackingToken,
	}, nil
}

// Collaborators are the addresses every pool of a registry is created with.
type Collaborators struct {
	Oracle       common.Address
	Dex          common.Address
	BaseCurrency common.Address
}

// Resume re-registers pools recovered from a journal so that lookups resolve
// and new deployments do not reuse their addresses. Badges are not journaled,
// so resumed pools reject every Authorize call. Nothing is added unless every
// record can be.
func (f *LocalFactory) Resume(records []model.PoolRecord, with Collaborators) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	seen := make(map[common.Address]struct{}, len(records))
	for _, rec := range records {
		_, dup := seen[rec.PoolAddress]
		if _, taken := f.directory.Lookup(rec.PoolAddress); dup || taken {
			return fmt.Errorf("resume %s: pool already deployed at %s", rec.Symbol, rec.PoolAddress.Hex())
		}
		seen[rec.PoolAddress] = struct{}{}
	}

	for _, rec := range records {
		if err := f.directory.add(InvestmentPool{
			Address:        rec.PoolAddress,
			TrackingToken:  rec.TrackingToken,
			Name:           rec.Name,
			Symbol:         rec.Symbol,
			PerformanceFee: rec.PerformanceFee,
			Oracle:         with.Oracle,
			Dex:            with.Dex,
			BaseCurrency:   with.BaseCurrency,
		}); err != nil {
			return fmt.Errorf("resume %s: %w", rec.Symbol, err)
		}
	}
	return nil
}

// nextAddress skips nonces whose address is already taken. Callers hold f.mu.
func (f *LocalFactory) nextAddress() common.Address {
	for {
		address := crypto.CreateAddress(f.deployer, f.nonce)
		if _, taken := f.directory.Lookup(address); !taken {
			return address
		}
		f.nonce++
	}
}

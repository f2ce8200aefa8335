package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"radhedge/internal/model"
	"radhedge/internal/pool"
)

var testConfig = Config{
	Oracle:       common.HexToAddress("0x00000000000000000000000000000000000000a1"),
	Dex:          common.HexToAddress("0x00000000000000000000000000000000000000b1"),
	BaseCurrency: common.HexToAddress("0x00000000000000000000000000000000000000c1"),
}

func newTestRegistry(t *testing.T, journal Journal) (*Registry, *pool.LocalFactory) {
	t.Helper()
	factory := pool.NewLocalFactory(common.HexToAddress("0x00000000000000000000000000000000000000d1"), nil, zap.NewNop())
	return New(testConfig, factory, journal, zap.NewNop()), factory
}

type memJournal struct {
	mu      sync.Mutex
	records []model.PoolRecord
	err     error
}

func (j *memJournal) Append(_ context.Context, rec model.PoolRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.records = append(j.records, rec)
	return nil
}

func TestRegistryScenarios(t *testing.T) {
	ctx := context.Background()
	r, factory := newTestRegistry(t, nil)
	fee := decimal.NewFromInt(5)

	t.Run("fresh registry", func(t *testing.T) {
		assert.False(t, r.PoolExists("BTC-HEDGE"))
		assert.Equal(t, 0, r.Len())
	})

	var btc model.ManagerBadge
	t.Run("create pool", func(t *testing.T) {
		var err error
		btc, err = r.NewInvestmentPool(ctx, fee, "BTC Hedge Fund", "BTC-HEDGE")
		require.NoError(t, err)
		assert.NotEmpty(t, btc.Token)
		assert.True(t, r.PoolExists("BTC-HEDGE"))
		assert.NoError(t, r.AssertPoolExists("BTC-HEDGE"))
	})

	t.Run("duplicate symbol", func(t *testing.T) {
		_, err := r.NewInvestmentPool(ctx, fee, "BTC Hedge Fund", "BTC-HEDGE")
		require.ErrorIs(t, err, ErrAlreadyExists)
		var exists *AlreadyExistsError
		require.ErrorAs(t, err, &exists)
		assert.Equal(t, "BTC-HEDGE", exists.Symbol)
		assert.Equal(t, 1, r.Len())
		assert.Equal(t, 1, factory.Directory().Len())
	})

	t.Run("second symbol", func(t *testing.T) {
		eth, err := r.NewInvestmentPool(ctx, fee, "ETH Hedge Fund", "ETH-HEDGE")
		require.NoError(t, err)
		assert.Equal(t, 2, r.Len())

		for symbol, badge := range map[string]model.ManagerBadge{"BTC-HEDGE": btc, "ETH-HEDGE": eth} {
			ref, err := r.PoolBySymbol(symbol)
			require.NoError(t, err)
			assert.Equal(t, badge.Pool, ref.Address)

			p, ok := factory.Directory().Resolve(ref)
			require.True(t, ok)
			assert.Equal(t, symbol, p.Symbol)
			assert.True(t, p.Authorize(badge))

			byToken, err := r.PoolByTrackingToken(p.TrackingToken)
			require.NoError(t, err)
			assert.Equal(t, ref, byToken)
		}
	})

	t.Run("unknown symbol", func(t *testing.T) {
		err := r.AssertPoolExists("UNKNOWN")
		require.ErrorIs(t, err, ErrNotFound)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "UNKNOWN", notFound.Symbol)
	})
}

func TestAssertPoolAbsent(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	require.NoError(t, r.AssertPoolAbsent("BTC-HEDGE"))

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(1), "BTC", "BTC-HEDGE")
	require.NoError(t, err)

	err = r.AssertPoolAbsent("BTC-HEDGE")
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.EqualError(t, err, `an investment pool for symbol "BTC-HEDGE" already exists`)
}

func TestSymbolsAreCaseSensitive(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	ctx := context.Background()

	_, err := r.NewInvestmentPool(ctx, decimal.NewFromInt(1), "lower", "btc-hedge")
	require.NoError(t, err)
	_, err = r.NewInvestmentPool(ctx, decimal.NewFromInt(1), "upper", "BTC-HEDGE")
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.PoolExists("Btc-Hedge"))
}

func TestPoolExistsIsIdempotent(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	for i := 0; i < 3; i++ {
		assert.False(t, r.PoolExists("BTC-HEDGE"))
	}
	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(1), "BTC", "BTC-HEDGE")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		assert.True(t, r.PoolExists("BTC-HEDGE"))
	}
}

func TestFactoryArguments(t *testing.T) {
	var got pool.Params
	factory := pool.FactoryFunc(func(_ context.Context, params pool.Params) (pool.Instance, error) {
		got = params
		addr := common.HexToAddress("0x0000000000000000000000000000000000000f01")
		return pool.Instance{
			Pool:          model.PoolRef{Address: addr},
			Badge:         model.ManagerBadge{Pool: addr, Token: "badge"},
			TrackingToken: common.HexToAddress("0x0000000000000000000000000000000000000f02"),
		}, nil
	})
	r := New(testConfig, factory, nil, nil)

	badge, err := r.NewInvestmentPool(context.Background(), decimal.RequireFromString("7.5"), "Name", "SYM")
	require.NoError(t, err)
	assert.Equal(t, "badge", badge.Token)

	assert.True(t, got.PerformanceFee.Equal(decimal.RequireFromString("7.5")))
	assert.Equal(t, testConfig.Oracle, got.Oracle)
	assert.Equal(t, testConfig.Dex, got.Dex)
	assert.Equal(t, testConfig.BaseCurrency, got.BaseCurrency)
	assert.Equal(t, "Name", got.Name)
	assert.Equal(t, "SYM", got.Symbol)

	assert.Equal(t, testConfig.Oracle, r.Oracle())
	assert.Equal(t, testConfig.Dex, r.Dex())
	assert.Equal(t, testConfig.BaseCurrency, r.BaseCurrency())
}

func TestFactoryErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("oracle unreachable")
	calls := 0
	r := New(testConfig, pool.FactoryFunc(func(context.Context, pool.Params) (pool.Instance, error) {
		calls++
		return pool.Instance{}, boom
	}), nil, nil)

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.False(t, r.PoolExists("BTC-HEDGE"))
	assert.Equal(t, 0, r.Len())
}

func TestFeeOutOfRangeLeavesNoEntry(t *testing.T) {
	r, factory := newTestRegistry(t, nil)

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(25), "BTC", "BTC-HEDGE")
	require.ErrorIs(t, err, pool.ErrFeeOutOfRange)
	assert.False(t, r.PoolExists("BTC-HEDGE"))
	assert.Equal(t, 0, factory.Directory().Len())

	_, err = r.NewInvestmentPool(context.Background(), decimal.NewFromInt(20), "BTC", "BTC-HEDGE")
	require.NoError(t, err)
}

func TestDuplicateSkipsFactory(t *testing.T) {
	calls := 0
	inner := pool.NewLocalFactory(common.HexToAddress("0x01"), nil, nil)
	r := New(testConfig, pool.FactoryFunc(func(ctx context.Context, params pool.Params) (pool.Instance, error) {
		calls++
		return inner.InstantiatePool(ctx, params)
	}), nil, nil)

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	require.NoError(t, err)
	_, err = r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, calls)
}

func TestDuplicateTrackingTokenRejected(t *testing.T) {
	n := 0
	token := common.HexToAddress("0x0000000000000000000000000000000000000f02")
	r := New(testConfig, pool.FactoryFunc(func(context.Context, pool.Params) (pool.Instance, error) {
		n++
		addr := common.BigToAddress(big.NewInt(int64(n)))
		return pool.Instance{Pool: model.PoolRef{Address: addr}, Badge: model.ManagerBadge{Pool: addr}, TrackingToken: token}, nil
	}), nil, nil)

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "A", "A")
	require.NoError(t, err)
	_, err = r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "B", "B")
	require.ErrorIs(t, err, ErrDuplicateTrackingToken)
	assert.False(t, r.PoolExists("B"))
	assert.Equal(t, 1, r.Len())
}

func TestEmptyPoolReferenceRejected(t *testing.T) {
	journal := &memJournal{}
	r := New(testConfig, pool.FactoryFunc(func(context.Context, pool.Params) (pool.Instance, error) {
		return pool.Instance{
			Badge:         model.ManagerBadge{Token: "badge"},
			TrackingToken: common.HexToAddress("0x0000000000000000000000000000000000000f02"),
		}, nil
	}), journal, nil)

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	require.Error(t, err)
	assert.False(t, r.PoolExists("BTC-HEDGE"))
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, journal.records)
}

func TestJournal(t *testing.T) {
	journal := &memJournal{}
	r, _ := newTestRegistry(t, journal)

	badge, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC Hedge Fund", "BTC-HEDGE")
	require.NoError(t, err)
	require.Len(t, journal.records, 1)

	rec := journal.records[0]
	assert.Equal(t, "BTC-HEDGE", rec.Symbol)
	assert.Equal(t, "BTC Hedge Fund", rec.Name)
	assert.Equal(t, badge.Pool, rec.PoolAddress)
	assert.False(t, rec.CreatedAt.IsZero())

	ref, err := r.PoolByTrackingToken(rec.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, rec.Ref(), ref)
}

func TestJournalFailureLeavesNoEntry(t *testing.T) {
	diskFull := errors.New("disk full")
	r, _ := newTestRegistry(t, &memJournal{err: diskFull})

	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	require.ErrorIs(t, err, diskFull)
	assert.False(t, r.PoolExists("BTC-HEDGE"))
	assert.Equal(t, 0, r.Len())
}

func TestRestore(t *testing.T) {
	journal := &memJournal{}
	source, _ := newTestRegistry(t, journal)
	for _, symbol := range []string{"BTC-HEDGE", "ETH-HEDGE"} {
		_, err := source.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), symbol, symbol)
		require.NoError(t, err)
	}

	r, _ := newTestRegistry(t, nil)
	require.NoError(t, r.Restore(journal.records))
	assert.Equal(t, 2, r.Len())
	for _, rec := range journal.records {
		bySymbol, err := r.PoolBySymbol(rec.Symbol)
		require.NoError(t, err)
		byToken, err := r.PoolByTrackingToken(rec.TrackingToken)
		require.NoError(t, err)
		assert.Equal(t, bySymbol, byToken)
	}

	err := r.Restore(journal.records[:1])
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 2, r.Len())
}

func TestRestoreIsAllOrNothing(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	token := common.HexToAddress("0x0000000000000000000000000000000000000f02")
	records := []model.PoolRecord{
		{Symbol: "A", PoolAddress: common.HexToAddress("0x0a"), TrackingToken: common.HexToAddress("0x1a")},
		{Symbol: "B", PoolAddress: common.HexToAddress("0x0b"), TrackingToken: token},
		{Symbol: "C", PoolAddress: common.HexToAddress("0x0c"), TrackingToken: token},
	}
	require.ErrorIs(t, r.Restore(records), ErrDuplicateTrackingToken)
	assert.Equal(t, 0, r.Len())

	records[2] = model.PoolRecord{Symbol: "A", PoolAddress: common.HexToAddress("0x0c"), TrackingToken: common.HexToAddress("0x1c")}
	require.ErrorIs(t, r.Restore(records), ErrAlreadyExists)
	assert.Equal(t, 0, r.Len())
}

func TestLookupErrors(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, err := r.PoolBySymbol("NOPE")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.PoolByTrackingToken(common.HexToAddress("0x01"))
	require.ErrorIs(t, err, ErrNotFound)
	var tokErr *TrackingTokenNotFoundError
	require.ErrorAs(t, err, &tokErr)
}

func TestNilFactory(t *testing.T) {
	r := New(testConfig, nil, nil, nil)
	_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
	require.Error(t, err)
	assert.False(t, r.PoolExists("BTC-HEDGE"))
}

func TestConcurrentCreationSameSymbol(t *testing.T) {
	r, factory := newTestRegistry(t, nil)
	const callers = 32

	var mu sync.Mutex
	succeeded, rejected := 0, 0

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := r.NewInvestmentPool(context.Background(), decimal.NewFromInt(5), "BTC", "BTC-HEDGE")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyExists):
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, rejected)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, factory.Directory().Len())
}

func TestConcurrentCreationDistinctSymbols(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	const callers = 16

	badges := make([]model.ManagerBadge, callers)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			badge, err := r.NewInvestmentPool(ctx, decimal.NewFromInt(int64(i%21)), "fund", fmt.Sprintf("SYM-%d", i))
			badges[i] = badge
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, callers, r.Len())

	seen := make(map[common.Address]struct{}, callers)
	for i, badge := range badges {
		ref, err := r.PoolBySymbol(fmt.Sprintf("SYM-%d", i))
		require.NoError(t, err)
		assert.Equal(t, badge.Pool, ref.Address)
		seen[ref.Address] = struct{}{}
	}
	assert.Len(t, seen, callers)
}

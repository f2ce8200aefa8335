package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"radhedge/internal/model"
)

const uniqueViolation = "23505"

// ErrConflict is returned by Append when the symbol or tracking token is
// already stored.
var ErrConflict = errors.New("pool record conflicts with an existing row")

// Store provides Postgres persistence for the pool journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the pools table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS radhedge_pools (
			symbol          TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			performance_fee NUMERIC NOT NULL,
			pool_address    TEXT NOT NULL UNIQUE,
			tracking_token  TEXT NOT NULL UNIQUE,
			created_at      TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create radhedge_pools: %w", err)
	}
	return nil
}

// Append inserts a pool record. Rows are never updated.
func (s *Store) Append(ctx context.Context, rec model.PoolRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO radhedge_pools (
			symbol, name, performance_fee, pool_address, tracking_token, created_at
		) VALUES ($1, $2, $3::numeric, $4, $5, $6)
	`,
		rec.Symbol,
		rec.Name,
		rec.PerformanceFee.String(),
		rec.PoolAddress.Hex(),
		rec.TrackingToken.Hex(),
		rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

// Load returns every stored record in creation order.
func (s *Store) Load(ctx context.Context) ([]model.PoolRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT symbol, name, performance_fee::text, pool_address, tracking_token, created_at
		FROM radhedge_pools
		ORDER BY created_at, symbol
	`)
	if err != nil {
		return nil, err
	}

	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan radhedge_pools: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.CollectableRow) (model.PoolRecord, error) {
	var (
		symbol, name        string
		fee, pool, tracking string
		createdAt           time.Time
	)
	if err := row.Scan(&symbol, &name, &fee, &pool, &tracking, &createdAt); err != nil {
		return model.PoolRecord{}, err
	}
	return recordFromColumns(symbol, name, fee, pool, tracking, createdAt)
}

func recordFromColumns(symbol, name, fee, pool, tracking string, createdAt time.Time) (model.PoolRecord, error) {
	parsedFee, err := decimal.NewFromString(fee)
	if err != nil {
		return model.PoolRecord{}, fmt.Errorf("performance fee %q: %w", fee, err)
	}
	if !common.IsHexAddress(pool) {
		return model.PoolRecord{}, fmt.Errorf("invalid pool address: %s", pool)
	}
	if !common.IsHexAddress(tracking) {
		return model.PoolRecord{}, fmt.Errorf("invalid tracking token: %s", tracking)
	}
	return model.PoolRecord{
		Symbol:         symbol,
		Name:           name,
		PerformanceFee: parsedFee,
		PoolAddress:    common.HexToAddress(pool),
		TrackingToken:  common.HexToAddress(tracking),
		CreatedAt:      createdAt.UTC(),
	}, nil
}

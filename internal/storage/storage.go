package storage

import (
	"context"

	"radhedge/internal/model"
)

// Journal is an append-only log of registered pools.
type Journal interface {
	Append(ctx context.Context, rec model.PoolRecord) error
	Load(ctx context.Context) ([]model.PoolRecord, error)
}

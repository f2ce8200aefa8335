package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PoolRef is a non-owning handle to an investment pool. The pool itself lives
// in whatever directory the factory that created it maintains.
type PoolRef struct {
	Address common.Address `json:"address"`
}

// IsZero reports whether the reference points nowhere.
func (r PoolRef) IsZero() bool {
	return r.Address == (common.Address{})
}

func (r PoolRef) String() string {
	return r.Address.Hex()
}

// PoolRecord is the persisted form of a registered pool.
type PoolRecord struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	PerformanceFee decimal.Decimal `json:"performance_fee"`
	PoolAddress    common.Address  `json:"pool_address"`
	TrackingToken  common.Address  `json:"tracking_token"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Ref returns the handle stored in the registry indexes.
func (r PoolRecord) Ref() PoolRef {
	return PoolRef{Address: r.PoolAddress}
}

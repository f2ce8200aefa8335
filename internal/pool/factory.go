package pool

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"radhedge/internal/model"
)

// Params holds everything a factory needs to instantiate an investment pool.
// Oracle, Dex and BaseCurrency are forwarded from the registry untouched.
type Params struct {
	PerformanceFee decimal.Decimal
	Oracle         common.Address
	Dex            common.Address
	BaseCurrency   common.Address
	Name           string
	Symbol         string
}

// Instance is the result of a successful instantiation. All three fields are
// produced together; a factory never returns a partial Instance with a nil error.
type Instance struct {
	Pool          model.PoolRef
	Badge         model.ManagerBadge
	TrackingToken common.Address
}

// Factory creates investment pools.
type Factory interface {
	InstantiatePool(ctx context.Context, params Params) (Instance, error)
}

// FactoryFunc adapts a plain function to the Factory interface.
type FactoryFunc func(ctx context.Context, params Params) (Instance, error)

func (f FactoryFunc) InstantiatePool(ctx context.Context, params Params) (Instance, error) {
	return f(ctx, params)
}

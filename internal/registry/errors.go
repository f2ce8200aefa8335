package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotFound               = errors.New("investment pool not found")
	ErrAlreadyExists          = errors.New("investment pool already exists")
	ErrDuplicateTrackingToken = errors.New("tracking token already registered")
)

// NotFoundError is returned when no pool is registered under Symbol.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no investment pool exists for symbol %q", e.Symbol)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError is returned when Symbol is already taken.
type AlreadyExistsError struct {
	Symbol string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("an investment pool for symbol %q already exists", e.Symbol)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// TrackingTokenNotFoundError is returned by PoolByTrackingToken.
type TrackingTokenNotFoundError struct {
	TrackingToken common.Address
}

func (e *TrackingTokenNotFoundError) Error() string {
	return fmt.Sprintf("no investment pool tracked by token %s", e.TrackingToken.Hex())
}

func (e *TrackingTokenNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

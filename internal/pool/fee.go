package pool

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// MinPerformanceFee and MaxPerformanceFee bound the performance fee, in percent.
	MinPerformanceFee = decimal.Zero
	MaxPerformanceFee = decimal.NewFromInt(20)

	ErrFeeOutOfRange = errors.New("performance fee out of range")
)

// FeeOutOfRangeError reports a performance fee outside [0, 20] percent.
type FeeOutOfRangeError struct {
	Fee decimal.Decimal
}

func (e *FeeOutOfRangeError) Error() string {
	return fmt.Sprintf("performance fee %s%% outside [%s, %s]", e.Fee, MinPerformanceFee, MaxPerformanceFee)
}

func (e *FeeOutOfRangeError) Is(target error) bool {
	return target == ErrFeeOutOfRange
}

// ValidateFee checks that fee lies in the inclusive range [0, 20].
func ValidateFee(fee decimal.Decimal) error {
	if fee.LessThan(MinPerformanceFee) || fee.GreaterThan(MaxPerformanceFee) {
		return &FeeOutOfRangeError{Fee: fee}
	}
	return nil
}

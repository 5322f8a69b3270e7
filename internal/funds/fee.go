package funds

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultFeeRate is the platform fee applied to outbound transfers.
var DefaultFeeRate = decimal.RequireFromString("0.02")

// FeeCalculator computes the platform fee charged to a transfer sender.
type FeeCalculator struct {
	rate decimal.Decimal
}

// NewFeeCalculator builds a calculator for the provided rate. The rate must
// sit in [0, 1); a rate of zero disables fees entirely.
func NewFeeCalculator(rate decimal.Decimal) (*FeeCalculator, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate %s out of range [0, 1)", rate)
	}
	return &FeeCalculator{rate: rate}, nil
}

// Fee returns the fee for the given transfer amount, rounded half-up to two
// decimal places.
func (c *FeeCalculator) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.rate).Round(2)
}

// Rate exposes the configured fee rate.
func (c *FeeCalculator) Rate() decimal.Decimal {
	return c.rate
}

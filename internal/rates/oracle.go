// Package rates prices a purchase quantity in the settlement fiat currency.
package rates

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// Oracle returns the current unit price of the settled asset in fiat terms.
// Implementations fail with apperr.KindRateUnavailable; there is no stale
// fallback.
type Oracle interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context) (decimal.Decimal, error)

func (f OracleFunc) Price(ctx context.Context) (decimal.Decimal, error) {
	return f(ctx)
}

// StaticOracle always quotes the same price. Used for local development.
type StaticOracle struct {
	UnitPrice decimal.Decimal
}

// Price returns the configured price.
func (o StaticOracle) Price(_ context.Context) (decimal.Decimal, error) {
	if !o.UnitPrice.IsPositive() {
		return decimal.Zero, apperr.New(apperr.KindRateUnavailable, "exchange rate unavailable")
	}
	return o.UnitPrice, nil
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRecordNotFound occurs when no ledger record exists for the user.
	ErrRecordNotFound = errors.New("ledger record not found")

	// ErrAddressAlreadyAssigned indicates the user already holds a different
	// deposit address. Assigning the same address again is not an error.
	ErrAddressAlreadyAssigned = errors.New("deposit address already assigned")

	// ErrNonPositiveCredit rejects credits that would not grow the balance.
	ErrNonPositiveCredit = errors.New("credit quantity must be positive")
)

// Record is the locally cached view of a user's on-chain holdings.
type Record struct {
	UserID         string
	DepositAddress string
	Balance        decimal.Decimal
	UpdatedAt      time.Time
}

// HasAddress reports whether a deposit address was assigned.
func (r Record) HasAddress() bool {
	return r.DepositAddress != ""
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
// The balance only ever grows through Credit.
type Store interface {
	EnsureRecord(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (Record, error)
	Credit(ctx context.Context, userID string, quantity decimal.Decimal) (decimal.Decimal, error)
	AssignAddress(ctx context.Context, userID, address string) error
}

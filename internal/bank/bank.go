// Package bank normalizes bank-aggregation balances for the purchase flow.
package bank

import (
	"context"

	"github.com/shopspring/decimal"
)

// Snapshot is a transient, read-only view of one linked bank account. It is
// fetched per request and never cached or persisted.
type Snapshot struct {
	AccountID string          `json:"account_id"`
	Name      string          `json:"name"`
	Available decimal.Decimal `json:"available"`
	Current   decimal.Decimal `json:"current"`
	Currency  string          `json:"currency"`
}

// Aggregator represents a connector to the external bank-aggregation service.
type Aggregator interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (string, error)
	AccountBalances(ctx context.Context, accessToken string) ([]Snapshot, error)
}

// CredentialStore keeps the per-user linkage credential (access token).
type CredentialStore interface {
	BankAccessToken(ctx context.Context, userID string) (string, error)
	SetBankAccessToken(ctx context.Context, userID, accessToken string) error
}

// Find returns the snapshot with the given account id.
func Find(snapshots []Snapshot, accountID string) (Snapshot, bool) {
	for _, s := range snapshots {
		if s.AccountID == accountID {
			return s, true
		}
	}
	return Snapshot{}, false
}

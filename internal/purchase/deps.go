package purchase

import (
	"context"

	"github.com/nevy-wallets/satoshi/internal/bank"
)

// BalanceSource reads the user's current bank snapshots.
type BalanceSource interface {
	Balances(ctx context.Context, userID string) ([]bank.Snapshot, error)
}

// WalletProvisioner returns the user's deposit address, provisioning the
// wallet on first use.
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, userID string) (string, error)
}

// Package chain wraps the cryptocurrency node used for wallet provisioning
// and settlement.
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound means the named wallet does not exist on the node.
	ErrWalletNotFound = errors.New("wallet does not exist")
	// ErrWalletAlreadyLoaded means the wallet is already loaded.
	ErrWalletAlreadyLoaded = errors.New("wallet already loaded")
	// ErrWalletAlreadyExists means createwallet found an existing wallet.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
)

// Node is the subset of node RPCs the service relies on. Wallet-scoped
// calls take the wallet name; an empty name targets the node's default
// wallet.
type Node interface {
	LoadWallet(ctx context.Context, name string) error
	CreateWallet(ctx context.Context, name string) error
	NewAddress(ctx context.Context, wallet string) (string, error)
	SetTxFee(ctx context.Context, wallet string, feeRate decimal.Decimal) error
	SendToAddress(ctx context.Context, wallet, address string, amount decimal.Decimal) (string, error)
}

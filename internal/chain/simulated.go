package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type simWallet struct {
	loaded    bool
	addresses int
}

// SimulatedNode is an in-memory node that mimics bitcoind's wallet
// semantics: createwallet also loads the wallet, and loading a loaded wallet
// reports "already loaded". Used for local development and tests.
type SimulatedNode struct {
	mu      sync.Mutex
	wallets map[string]*simWallet
	sent    map[string]decimal.Decimal
	feeRate map[string]decimal.Decimal

	creates int
	loads   int
	sends   int

	// LoadErr, when set, is returned by LoadWallet before any other check.
	LoadErr error
	// SendErr, when set, is returned by SendToAddress.
	SendErr error
	// OnSend runs after a successful send, outside the node lock.
	OnSend func(address string, amount decimal.Decimal)
}

// NewSimulatedNode builds a simulated node with the given wallets already
// created but unloaded.
func NewSimulatedNode(existing ...string) *SimulatedNode {
	n := &SimulatedNode{
		wallets: make(map[string]*simWallet),
		sent:    make(map[string]decimal.Decimal),
		feeRate: make(map[string]decimal.Decimal),
	}
	for _, name := range existing {
		n.wallets[name] = &simWallet{}
	}
	return n
}

func (n *SimulatedNode) LoadWallet(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loads++
	if n.LoadErr != nil {
		return n.LoadErr
	}
	w, ok := n.wallets[name]
	if !ok {
		return fmt.Errorf("loadwallet %s: %w", name, ErrWalletNotFound)
	}
	if w.loaded {
		return fmt.Errorf("loadwallet %s: %w", name, ErrWalletAlreadyLoaded)
	}
	w.loaded = true
	return nil
}

func (n *SimulatedNode) CreateWallet(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.creates++
	if _, ok := n.wallets[name]; ok {
		return fmt.Errorf("createwallet %s: %w", name, ErrWalletAlreadyExists)
	}
	n.wallets[name] = &simWallet{loaded: true}
	return nil
}

func (n *SimulatedNode) NewAddress(ctx context.Context, wallet string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	w, ok := n.wallets[wallet]
	if !ok || !w.loaded {
		return "", fmt.Errorf("getnewaddress: wallet %q not loaded", wallet)
	}
	w.addresses++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s/%d", wallet, w.addresses)))
	return "bcrt1q" + hex.EncodeToString(sum[:])[:38], nil
}

func (n *SimulatedNode) SetTxFee(ctx context.Context, wallet string, feeRate decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.feeRate[wallet] = feeRate
	return nil
}

func (n *SimulatedNode) SendToAddress(ctx context.Context, wallet, address string, amount decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.mu.Lock()
	if n.SendErr != nil {
		n.mu.Unlock()
		return "", n.SendErr
	}
	if !amount.IsPositive() {
		n.mu.Unlock()
		return "", fmt.Errorf("sendtoaddress: invalid amount %s", amount)
	}
	n.sends++
	n.sent[address] = n.sent[address].Add(amount)
	hook := n.OnSend
	n.mu.Unlock()

	if hook != nil {
		hook(address, amount)
	}
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return hex.EncodeToString(sum[:]), nil
}

// Creates returns how many createwallet calls were made.
func (n *SimulatedNode) Creates() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.creates
}

// Loads returns how many loadwallet calls were made.
func (n *SimulatedNode) Loads() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loads
}

// Sends returns how many successful sends were made.
func (n *SimulatedNode) Sends() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

// SentTo returns the total amount the node has sent to address.
func (n *SimulatedNode) SentTo(address string) decimal.Decimal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[address]
}

// FeeRate returns the last fee rate configured for wallet.
func (n *SimulatedNode) FeeRate(wallet string) decimal.Decimal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.feeRate[wallet]
}

package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/ledger"
	"github.com/nevy-wallets/satoshi/internal/logging"
	"github.com/nevy-wallets/satoshi/internal/userlock"
)

func newTestService(t *testing.T, node chain.Node) (*Service, ledger.Store, string) {
	t.Helper()
	store := ledger.NewInMemory()
	userID := uuid.NewString()
	if err := store.EnsureRecord(context.Background(), userID); err != nil {
		t.Fatalf("ensure record: %v", err)
	}
	return NewService(node, store, userlock.NewMemory(), "", logging.Discard()), store, userID
}

func TestEnsureWalletIsIdempotent(t *testing.T) {
	node := chain.NewSimulatedNode()
	svc, store, userID := newTestService(t, node)
	ctx := context.Background()

	const calls = 5
	var first string
	for i := 0; i < calls; i++ {
		addr, err := svc.EnsureWallet(ctx, userID)
		if err != nil {
			t.Fatalf("ensure wallet %d: %v", i, err)
		}
		if i == 0 {
			first = addr
		} else if addr != first {
			t.Fatalf("call %d returned %s, expected %s", i, addr, first)
		}
	}

	if node.Creates() != 1 {
		t.Fatalf("expected exactly one create, got %d", node.Creates())
	}
	// First call: not-found load, then load after create; every later call loads once.
	if node.Loads() != calls+1 {
		t.Fatalf("expected %d loads, got %d", calls+1, node.Loads())
	}

	rec, _ := store.Get(ctx, userID)
	if rec.DepositAddress != first {
		t.Fatalf("expected recorded address %s, got %s", first, rec.DepositAddress)
	}
}

func TestEnsureWalletLoadsExistingWallet(t *testing.T) {
	store := ledger.NewInMemory()
	userID := uuid.NewString()
	store.EnsureRecord(context.Background(), userID)

	node := chain.NewSimulatedNode(defaultWalletPrefix + userID)
	svc := NewService(node, store, nil, "", logging.Discard())

	if _, err := svc.EnsureWallet(context.Background(), userID); err != nil {
		t.Fatalf("ensure wallet: %v", err)
	}
	if node.Creates() != 0 {
		t.Fatalf("existing wallet must not be re-created, creates=%d", node.Creates())
	}
}

func TestEnsureWalletSwallowsAlreadyLoaded(t *testing.T) {
	node := chain.NewSimulatedNode()
	svc, _, userID := newTestService(t, node)
	ctx := context.Background()

	// createwallet leaves the wallet loaded, so the next loadwallet reports "already loaded".
	if err := node.CreateWallet(ctx, svc.WalletName(userID)); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	if err := node.LoadWallet(ctx, svc.WalletName(userID)); !errors.Is(err, chain.ErrWalletAlreadyLoaded) {
		t.Fatalf("expected already loaded from node, got %v", err)
	}

	if _, err := svc.EnsureWallet(ctx, userID); err != nil {
		t.Fatalf("already-loaded must be treated as success, got %v", err)
	}
	if node.Creates() != 1 {
		t.Fatalf("expected no further create, got %d", node.Creates())
	}
}

func TestEnsureWalletOtherNodeErrorAborts(t *testing.T) {
	node := chain.NewSimulatedNode()
	node.LoadErr = errors.New("connection refused")
	svc, store, userID := newTestService(t, node)

	_, err := svc.EnsureWallet(context.Background(), userID)
	if !apperr.IsKind(err, apperr.KindWalletProvisionFailed) {
		t.Fatalf("expected wallet_provision_failed, got %v", err)
	}
	if node.Creates() != 0 {
		t.Fatalf("unexpected create on unknown error")
	}
	rec, _ := store.Get(context.Background(), userID)
	if rec.HasAddress() {
		t.Fatal("no address should be recorded after a failed provisioning")
	}
}

func TestEnsureWalletConcurrentFirstUse(t *testing.T) {
	node := chain.NewSimulatedNode()
	svc, _, userID := newTestService(t, node)

	const workers = 10
	addrs := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr, err := svc.EnsureWallet(context.Background(), userID)
			if err != nil {
				t.Errorf("ensure wallet %d: %v", i, err)
				return
			}
			addrs[i] = addr
		}(i)
	}
	wg.Wait()

	if node.Creates() != 1 {
		t.Fatalf("concurrent first use created %d wallets", node.Creates())
	}
	for i, a := range addrs {
		if a != addrs[0] {
			t.Fatalf("worker %d got %s, expected %s", i, a, addrs[0])
		}
	}
}

func TestEnsureWalletUnknownUser(t *testing.T) {
	svc := NewService(chain.NewSimulatedNode(), ledger.NewInMemory(), nil, "", logging.Discard())
	if _, err := svc.EnsureWallet(context.Background(), "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

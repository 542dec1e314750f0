package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/ledger"
	"github.com/nevy-wallets/satoshi/internal/userlock"
)

const defaultWalletPrefix = "wallet_"

// Service provisions per-user node wallets and deposit addresses.
type Service struct {
	node   chain.Node
	store  ledger.Store
	locks  userlock.Locker
	prefix string
	logger *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(node chain.Node, store ledger.Store, locks userlock.Locker, prefix string, logger *slog.Logger) *Service {
	if prefix == "" {
		prefix = defaultWalletPrefix
	}
	if locks == nil {
		locks = userlock.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{node: node, store: store, locks: locks, prefix: prefix, logger: logger.With("component", "wallet")}
}

// WalletName returns the node wallet dedicated to the user.
func (s *Service) WalletName(userID string) string {
	return s.prefix + userID
}

// EnsureWallet makes sure the user's wallet is loaded on the node and returns
// their deposit address, allocating and recording it on first use. Calls for
// the same user are serialized.
func (s *Service) EnsureWallet(ctx context.Context, userID string) (string, error) {
	unlock, err := s.locks.Lock(ctx, "wallet:"+userID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindWalletProvisionFailed, "wallet provisioning unavailable", err)
	}
	defer unlock()

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return "", apperr.Wrap(apperr.KindNotFound, "user not found", err)
		}
		return "", apperr.Wrap(apperr.KindInternal, "could not read ledger record", err)
	}

	name := s.WalletName(userID)
	if err := s.ensureLoaded(ctx, name); err != nil {
		s.logger.Error("wallet provisioning failed", slog.String("user_id", userID), slog.String("wallet", name), slog.Any("error", err))
		return "", apperr.Wrap(apperr.KindWalletProvisionFailed, "could not provision wallet", err)
	}

	if rec.HasAddress() {
		return rec.DepositAddress, nil
	}

	address, err := s.node.NewAddress(ctx, name)
	if err != nil {
		return "", apperr.Wrap(apperr.KindWalletProvisionFailed, "could not allocate deposit address", err)
	}
	if err := s.store.AssignAddress(ctx, userID, address); err != nil {
		if errors.Is(err, ledger.ErrAddressAlreadyAssigned) {
			return "", apperr.Wrap(apperr.KindAddressAlreadyAssigned, "deposit address already assigned", err)
		}
		return "", apperr.Wrap(apperr.KindStoreWriteFailed, "could not record deposit address", err)
	}

	s.logger.Info("deposit address assigned", slog.String("user_id", userID), slog.String("wallet", name), slog.String("address", address))
	return address, nil
}

// ensureLoaded runs the load protocol: a loaded wallet proceeds, an unloaded
// one is loaded, and a missing one is created and then loaded. Only the
// not-found and already-loaded causes are recovered from.
func (s *Service) ensureLoaded(ctx context.Context, name string) error {
	err := chain.Classify(s.node.LoadWallet(ctx, name))
	switch {
	case err == nil, errors.Is(err, chain.ErrWalletAlreadyLoaded):
		return nil
	case !errors.Is(err, chain.ErrWalletNotFound):
		return err
	}

	if err := chain.Classify(s.node.CreateWallet(ctx, name)); err != nil && !errors.Is(err, chain.ErrWalletAlreadyExists) {
		return err
	}
	s.logger.Info("wallet created", slog.String("wallet", name))

	err = chain.Classify(s.node.LoadWallet(ctx, name))
	if err == nil || errors.Is(err, chain.ErrWalletAlreadyLoaded) {
		return nil
	}
	return err
}

// Holdings returns the recorded deposit address and balance.
func (s *Service) Holdings(ctx context.Context, userID string) (Holdings, error) {
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return Holdings{}, apperr.Wrap(apperr.KindNotFound, "wallet not found", err)
		}
		return Holdings{}, apperr.Wrap(apperr.KindInternal, "could not read ledger record", err)
	}
	return Holdings{
		UserID:         rec.UserID,
		DepositAddress: rec.DepositAddress,
		Balance:        rec.Balance,
		AsOf:           time.Now().UTC(),
	}, nil
}

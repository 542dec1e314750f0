package bank

import (
	"context"
	"fmt"
	"strings"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// Adapter resolves a user's linkage credential and reads balances through
// the aggregator.
type Adapter struct {
	aggregator Aggregator
	creds      CredentialStore
}

// NewAdapter wires an aggregator with the credential store.
func NewAdapter(aggregator Aggregator, creds CredentialStore) (*Adapter, error) {
	if aggregator == nil {
		return nil, fmt.Errorf("bank aggregator is required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	return &Adapter{aggregator: aggregator, creds: creds}, nil
}

// Balances returns the user's account snapshots in aggregator order. An empty
// slice means no linked accounts.
func (a *Adapter) Balances(ctx context.Context, userID string) ([]Snapshot, error) {
	token, err := a.creds.BankAccessToken(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBankUnavailable, "could not read bank linkage", err)
	}
	if token == "" {
		return nil, apperr.New(apperr.KindLinkingRequired, "link a bank account first")
	}

	snapshots, err := a.aggregator.AccountBalances(ctx, token)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindBankUnavailable, "bank balances unavailable", err)
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}
	return snapshots, nil
}

// LinkToken starts the aggregator's account-linking flow for the user.
func (a *Adapter) LinkToken(ctx context.Context, userID string) (string, error) {
	token, err := a.aggregator.CreateLinkToken(ctx, userID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindBankUnavailable, "could not create link token", err)
	}
	return token, nil
}

// Link exchanges the public token from the linking flow and stores the
// resulting access token for the user.
func (a *Adapter) Link(ctx context.Context, userID, publicToken string) error {
	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" {
		return apperr.New(apperr.KindInvalid, "public_token is required")
	}
	accessToken, err := a.aggregator.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		return apperr.Wrap(apperr.KindBankUnavailable, "could not exchange public token", err)
	}
	if err := a.creds.SetBankAccessToken(ctx, userID, accessToken); err != nil {
		return apperr.Wrap(apperr.KindStoreWriteFailed, "could not store bank linkage", err)
	}
	return nil
}

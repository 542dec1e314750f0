package bank

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SandboxAggregator is an offline aggregator for local development. Every
// linked user sees the same two accounts.
type SandboxAggregator struct {
	Accounts []Snapshot
}

// NewSandboxAggregator returns an aggregator with a checking and a savings account.
func NewSandboxAggregator() *SandboxAggregator {
	return &SandboxAggregator{Accounts: []Snapshot{
		{AccountID: "sandbox-checking", Name: "Checking", Available: decimal.NewFromInt(1_000), Current: decimal.NewFromInt(1_100), Currency: "USD"},
		{AccountID: "sandbox-savings", Name: "Savings", Available: decimal.NewFromInt(5_000), Current: decimal.NewFromInt(5_000), Currency: "USD"},
	}}
}

func (s *SandboxAggregator) CreateLinkToken(_ context.Context, _ string) (string, error) {
	return "link-sandbox-" + uuid.NewString(), nil
}

func (s *SandboxAggregator) ExchangePublicToken(_ context.Context, publicToken string) (string, error) {
	return "access-sandbox-" + strings.TrimPrefix(publicToken, "public-sandbox-"), nil
}

func (s *SandboxAggregator) AccountBalances(_ context.Context, _ string) ([]Snapshot, error) {
	out := make([]Snapshot, len(s.Accounts))
	copy(out, s.Accounts)
	return out, nil
}

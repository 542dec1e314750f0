package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development.
func NewInMemory() Store {
	return &inMemoryStore{records: make(map[string]Record)}
}

func (s *inMemoryStore) EnsureRecord(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[userID]; !exists {
		s.records[userID] = Record{UserID: userID, Balance: decimal.Zero, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, userID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[userID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *inMemoryStore) Credit(_ context.Context, userID string, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, ErrNonPositiveCredit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return decimal.Zero, ErrRecordNotFound
	}
	rec.Balance = rec.Balance.Add(quantity)
	rec.UpdatedAt = time.Now().UTC()
	s.records[userID] = rec
	return rec.Balance, nil
}

func (s *inMemoryStore) AssignAddress(_ context.Context, userID, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return ErrRecordNotFound
	}
	switch rec.DepositAddress {
	case address:
		return nil
	case "":
		rec.DepositAddress = address
		rec.UpdatedAt = time.Now().UTC()
		s.records[userID] = rec
		return nil
	default:
		return ErrAddressAlreadyAssigned
	}
}

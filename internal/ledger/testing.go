package ledger

import "github.com/shopspring/decimal"

// SeedRecord is a test helper that overwrites a record when using the in-memory store.
func SeedRecord(s Store, userID, address string, balance decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.records[userID] = Record{UserID: userID, DepositAddress: address, Balance: balance}
	}
}

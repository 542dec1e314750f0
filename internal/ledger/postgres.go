package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists ledger records in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureRecord creates an empty record for the user if none exists.
func (s *PostgresStore) EnsureRecord(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO ledger_records (user_id, balance, updated_at) VALUES ($1, 0, $2)
        ON CONFLICT (user_id) DO NOTHING`, id, time.Now().UTC())
	return err
}

// Get loads the record for the user.
func (s *PostgresStore) Get(ctx context.Context, userID string) (Record, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Record{}, ErrRecordNotFound
	}
	const query = `
        SELECT user_id, COALESCE(deposit_address, ''), balance::text, updated_at
        FROM ledger_records
        WHERE user_id = $1`
	var (
		rec        Record
		recID      uuid.UUID
		balanceStr string
		updatedAt  time.Time
	)
	if err := s.db.QueryRow(ctx, query, id).Scan(&recID, &rec.DepositAddress, &balanceStr, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return Record{}, fmt.Errorf("parse balance: %w", err)
	}
	rec.UserID = recID.String()
	rec.Balance = balance
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}

// Credit adds quantity to the balance atomically and returns the new balance.
func (s *PostgresStore) Credit(ctx context.Context, userID string, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() {
		return decimal.Zero, ErrNonPositiveCredit
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return decimal.Zero, ErrRecordNotFound
	}

	const query = `
        UPDATE ledger_records
        SET balance = balance + CAST($2::text AS NUMERIC), updated_at = $3
        WHERE user_id = $1
        RETURNING balance::text`
	var balanceStr string
	if err := s.db.QueryRow(ctx, query, id, quantity.String(), time.Now().UTC()).Scan(&balanceStr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrRecordNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(balanceStr)
}

// AssignAddress sets the deposit address once.
func (s *PostgresStore) AssignAddress(ctx context.Context, userID, address string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrRecordNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var current *string
	if err := tx.QueryRow(ctx, `SELECT deposit_address FROM ledger_records WHERE user_id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRecordNotFound
		}
		return err
	}
	if current != nil && *current != "" {
		if *current == address {
			return nil
		}
		return ErrAddressAlreadyAssigned
	}

	if _, err := tx.Exec(ctx, `UPDATE ledger_records SET deposit_address = $2, updated_at = $3 WHERE user_id = $1`, id, address, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

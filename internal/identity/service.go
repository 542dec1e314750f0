package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/ledger"
)

const minPasswordLength = 8

// Service manages the user lifecycle.
type Service struct {
	repo    Repository
	records ledger.Store
}

// NewService creates a new identity service. Every registered user gets an
// empty ledger record in records.
func NewService(repo Repository, records ledger.Store) *Service {
	return &Service{repo: repo, records: records}
}

// Register creates a user with a hashed password and its ledger record.
func (s *Service) Register(ctx context.Context, in Signup) (User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, apperr.New(apperr.KindInvalid, "a valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		return User{}, apperr.New(apperr.KindInvalid, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return User{}, apperr.New(apperr.KindInvalid, "name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "could not hash password", err)
	}

	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return User{}, apperr.Wrap(apperr.KindConflict, "email already registered", err)
		}
		return User{}, apperr.Wrap(apperr.KindStoreWriteFailed, "could not create user", err)
	}
	if err := s.records.EnsureRecord(ctx, user.ID); err != nil {
		// Roll the user back so the email can register again.
		undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if delErr := s.repo.Delete(undoCtx, user.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("remove user %s: %w", user.ID, delErr))
		}
		return User{}, apperr.Wrap(apperr.KindStoreWriteFailed, "could not create ledger record", err)
	}

	return user, nil
}

// Authenticate verifies credentials.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "could not load user", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}
	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// BankAccessToken returns the stored bank credential; empty when unlinked.
func (s *Service) BankAccessToken(ctx context.Context, userID string) (string, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.BankAccessToken, nil
}

// SetBankAccessToken replaces the stored bank credential.
func (s *Service) SetBankAccessToken(ctx context.Context, userID, accessToken string) error {
	return s.repo.SetBankAccessToken(ctx, userID, accessToken)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

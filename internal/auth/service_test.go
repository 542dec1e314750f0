package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nevy-wallets/satoshi/internal/identity"
)

func TestIssueAndParse(t *testing.T) {
	svc, err := NewService("s3cret", time.Hour, "satoshi")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	user := identity.User{ID: "user-1", Email: "ada@example.com"}

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.ExpiresIn != 3600 {
		t.Fatalf("expected 3600s expiry, got %d", token.ExpiresIn)
	}

	claims, err := svc.Parse(token.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != user.ID || claims.Email != user.Email {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc, _ := NewService("s3cret", time.Minute, "satoshi")
	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issuedAt }
	token, err := svc.Issue(identity.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.Parse(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestParseRejectsForeignSecretAndAlgorithm(t *testing.T) {
	issuer, _ := NewService("other", time.Hour, "satoshi")
	token, _ := issuer.Issue(identity.User{ID: "user-1"})

	svc, _ := NewService("s3cret", time.Hour, "satoshi")
	if _, err := svc.Parse(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign secret, got %v", err)
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for alg none, got %v", err)
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService("", time.Hour, ""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

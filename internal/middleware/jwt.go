package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/auth"
	"github.com/nevy-wallets/satoshi/internal/identity"
)

// UserLookup resolves the token subject to a live user.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// JWTAuth returns a middleware that validates bearer access tokens and makes
// sure the subject still exists.
func JWTAuth(tokens *auth.Service, users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Parse(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		if _, err := users.FindByID(c.UserContext(), claims.Subject); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}

		c.Locals("user_id", claims.Subject)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

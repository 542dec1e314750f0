package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/auth"
	"github.com/nevy-wallets/satoshi/internal/identity"
)

// RegisterAuthRoutes wires signup and login endpoints.
func RegisterAuthRoutes(r fiber.Router, ids *identity.Handler, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/signup", ids.Signup)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
}

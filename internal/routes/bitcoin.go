package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/purchase"
	"github.com/nevy-wallets/satoshi/internal/wallet"
)

// RegisterBitcoinRoutes wires deposit address, balance and purchase endpoints.
func RegisterBitcoinRoutes(r fiber.Router, wallets *wallet.Handler, purchases *purchase.Handler, idempotent fiber.Handler) {
	group := r.Group("/bitcoin")
	group.Get("/address", wallets.Address)
	group.Get("/balance", wallets.Balance)
	group.Post("/purchase", withIdempotency(idempotent, purchases.Purchase)...)
}

// withIdempotency prepends an optional middleware to a handler.
func withIdempotency(mw fiber.Handler, h fiber.Handler) []fiber.Handler {
	if mw == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{mw, h}
}

package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/bank"
)

// RegisterBankRoutes wires bank-linking and balance endpoints.
func RegisterBankRoutes(r fiber.Router, h *bank.Handler, idempotent fiber.Handler) {
	group := r.Group("/bank")
	group.Post("/link_token", h.LinkToken)
	group.Post("/exchange_public_token", withIdempotency(idempotent, h.ExchangePublicToken)...)
	group.Get("/balances", h.Balances)
}

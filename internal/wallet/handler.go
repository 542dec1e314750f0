package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Address returns the caller's deposit address.
func (h *Handler) Address(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	holdings, err := h.service.Holdings(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	if holdings.DepositAddress == "" {
		return fiber.NewError(http.StatusNotFound, "deposit address not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"deposit_address": holdings.DepositAddress,
	})
}

// Balance returns the caller's recorded on-chain balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	holdings, err := h.service.Holdings(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":   holdings.Balance.String(),
		"timestamp": holdings.AsOf,
	})
}

package bank

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/notification"
)

// Provisioner hands out the user's deposit address, creating the wallet on
// first use.
type Provisioner interface {
	EnsureWallet(ctx context.Context, userID string) (string, error)
}

// Handler exposes bank-linking and balance endpoints.
type Handler struct {
	adapter  *Adapter
	wallets  Provisioner
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewHandler builds a bank HTTP handler.
func NewHandler(adapter *Adapter, wallets Provisioner, notifier notification.Notifier, logger *slog.Logger) *Handler {
	return &Handler{adapter: adapter, wallets: wallets, notifier: notifier, logger: logger}
}

// LinkToken starts the linking flow.
func (h *Handler) LinkToken(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	token, err := h.adapter.LinkToken(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"link_token": token})
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
}

// ExchangePublicToken completes linking and provisions the user's wallet.
func (h *Handler) ExchangePublicToken(c *fiber.Ctx) error {
	var req exchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)
	ctx := c.UserContext()

	if err := h.adapter.Link(ctx, uid, req.PublicToken); err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	address, err := h.wallets.EnsureWallet(ctx, uid)
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}

	if h.notifier != nil {
		if err := h.notifier.Send(ctx, notification.BankLinked(uid, address)); err != nil && h.logger != nil {
			h.logger.Warn("bank link notification failed", slog.String("user_id", uid), slog.Any("error", err))
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":         "bank account linked",
		"deposit_address": address,
	})
}

// Balances lists the caller's linked accounts.
func (h *Handler) Balances(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	snapshots, err := h.adapter.Balances(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": snapshots})
}

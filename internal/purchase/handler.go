package purchase

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// Handler exposes the purchase endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a purchase handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Purchase converts bank funds into on-chain value for the authenticated user.
func (h *Handler) Purchase(c *fiber.Ctx) error {
	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(string)

	outcome, err := h.service.Purchase(c.UserContext(), Request{
		UserID:    uid,
		AccountID: req.AccountID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}

	return c.Status(http.StatusOK).JSON(PurchaseResponse{
		Message:       "purchase completed",
		TransactionID: outcome.SettlementRef,
		Quantity:      outcome.Quantity.String(),
		UnitPrice:     outcome.UnitPrice.String(),
		FiatCost:      outcome.FiatCost.String(),
		Balance:       outcome.Balance.String(),
		CompletedAt:   outcome.CompletedAt,
	})
}

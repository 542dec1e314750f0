package identity

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

// Signup handles user onboarding.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Signup{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	return c.Status(http.StatusCreated).JSON(userResponse{UserID: user.ID, Email: user.Email, Name: user.Name})
}

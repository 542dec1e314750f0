package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/identity"
)

// Handler exposes the login endpoint.
type Handler struct {
	ids    *identity.Service
	tokens *Service
}

func NewHandler(ids *identity.Service, tokens *Service) *Handler {
	return &Handler{ids: ids, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login validates credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return fiber.NewError(apperr.KindOf(err).HTTPStatus(), apperr.MessageOf(err))
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "could not issue token")
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		UserID:      user.ID,
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   token.ExpiresIn,
	})
}

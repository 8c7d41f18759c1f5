package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/dto"
	"github.com/noah-isme/labreport-go-api/internal/service"
	"github.com/noah-isme/labreport-go-api/internal/utils"
)

// AuthHandler exposes the token refresh endpoint. Clients retry a 401
// once after refreshing, so this route sits outside the JWT middleware.
type AuthHandler struct {
	tokens service.TokenService
	logger zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(tokenService service.TokenService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		tokens: tokenService,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the auth endpoints to the router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/refresh", h.refresh)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "refresh_token is required")
	}

	pair, err := h.tokens.Refresh(payload.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid refresh token")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "token refreshed", pair)
}

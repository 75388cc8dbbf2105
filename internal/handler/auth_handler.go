package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/service"
	"github.com/oakbyte/pulse-api/internal/utils"
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	service   service.AuthService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler constructs the handler instance.
func NewAuthHandler(service service.AuthService, validator *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the public auth routes. Logout requires authentication and
// is registered separately via RegisterProtected.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/login", h.login)
}

// RegisterProtected wires the auth routes that need a valid token.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Post("/logout", h.logout)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Register(c.UserContext(), req, requestMetaFromCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("registration failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "registration failed")
	}

	return utils.SendCreated(c, "account created", response)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Login(c.UserContext(), req, requestMetaFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAccountInactive):
			return utils.SendError(c, fiber.StatusForbidden, "account is not active")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
		}
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	if err := h.service.Logout(c.UserContext(), userID, requestMetaFromCtx(c)); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("logout failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "logout failed")
	}

	return utils.SendSuccess(c, "logged out", nil)
}

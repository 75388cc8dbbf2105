package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/service"
	"github.com/oakbyte/pulse-api/internal/utils"
)

// UserHandler serves user account endpoints.
type UserHandler struct {
	service   service.UserService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewUserHandler constructs the handler instance.
func NewUserHandler(service service.UserService, validator *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires the self-service user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("/me", h.me)
	router.Put("/me", h.updateMe)
}

// RegisterAdmin wires the admin-facing user management routes.
func (h *UserHandler) RegisterAdmin(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.adminUpdate)
	router.Delete("/:id", h.remove)
	router.Post("/:id/restore", h.restore)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	user, err := h.service.Get(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load profile")
	}

	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *UserHandler) updateMe(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.service.UpdateProfile(c.UserContext(), userID, userID, req, requestMetaFromCtx(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update profile")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update profile")
	}

	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	req := dto.UserListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Role:     c.Query("role"),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list users")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list users")
	}

	return utils.SendSuccess(c, "users retrieved", result)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load user")
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) adminUpdate(c *fiber.Ctx) error {
	var req dto.AdminUserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.service.AdminUpdate(c.UserContext(), userIDFromContext(c), c.Params("id"), req, requestMetaFromCtx(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update user")
	}

	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), userIDFromContext(c), c.Params("id"), requestMetaFromCtx(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete user")
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) restore(c *fiber.Ctx) error {
	user, err := h.service.Restore(c.UserContext(), userIDFromContext(c), c.Params("id"), requestMetaFromCtx(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "deleted user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to restore user")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to restore user")
	}

	return utils.SendSuccess(c, "user restored", user)
}

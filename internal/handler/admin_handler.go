package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/repository"
	"github.com/oakbyte/pulse-api/internal/service"
	"github.com/oakbyte/pulse-api/internal/utils"
)

// AdminHandler serves back-office account management and the admin audit
// trail.
type AdminHandler struct {
	service   service.AdminService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminHandler constructs the handler instance.
func NewAdminHandler(service service.AdminService, validator *validator.Validate, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register wires the admin management routes. The caller guards the group
// with superadmin role middleware.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.invite)
	router.Get("/actions", h.listActions)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
}

func (h *AdminHandler) list(c *fiber.Ctx) error {
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

	result, err := h.service.List(c.UserContext(), page, pageSize)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list admins")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list admins")
	}

	return utils.SendSuccess(c, "admins retrieved", result)
}

func (h *AdminHandler) invite(c *fiber.Ctx) error {
	var req dto.AdminInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Invite(c.UserContext(), userIDFromContext(c), req, requestMetaFromCtx(c))
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return utils.SendError(c, fiber.StatusConflict, "email already registered")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to invite admin")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to invite admin")
	}

	return utils.SendCreated(c, "admin invited", result)
}

func (h *AdminHandler) listActions(c *fiber.Ctx) error {
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

	filter := repository.AdminActivityLogFilter{
		Page:      page,
		PageSize:  pageSize,
		Action:    c.Query("action"),
		ModelType: c.Query("model_type"),
		ModelID:   c.Query("model_id"),
	}
	if adminID := c.Query("admin_id"); adminID != "" {
		filter.AdminID = &adminID
	}

	result, err := h.service.ListActions(c.UserContext(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list admin actions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list admin actions")
	}

	return utils.SendSuccess(c, "admin actions retrieved", result)
}

func (h *AdminHandler) get(c *fiber.Ctx) error {
	admin, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "admin not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load admin")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load admin")
	}

	return utils.SendSuccess(c, "admin retrieved", admin)
}

func (h *AdminHandler) update(c *fiber.Ctx) error {
	var req dto.AdminUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	admin, err := h.service.Update(c.UserContext(), userIDFromContext(c), c.Params("id"), req, requestMetaFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "admin not found")
		case errors.Is(err, service.ErrLastSuperAdmin):
			return utils.SendError(c, fiber.StatusConflict, "cannot remove the last superadmin")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to update admin")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update admin")
		}
	}

	return utils.SendSuccess(c, "admin updated", admin)
}

func (h *AdminHandler) remove(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), userIDFromContext(c), c.Params("id"), requestMetaFromCtx(c)); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "admin not found")
		case errors.Is(err, service.ErrLastSuperAdmin):
			return utils.SendError(c, fiber.StatusConflict, "cannot remove the last superadmin")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to delete admin")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to delete admin")
		}
	}

	return utils.SendSuccess(c, "admin deleted", nil)
}

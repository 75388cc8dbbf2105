package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/service"
	"github.com/oakbyte/pulse-api/internal/utils"
)

// ActivityHandler serves the activity reporting and recording endpoints.
type ActivityHandler struct {
	queries  service.ActivityQueryService
	recorder service.ActivityService
	cleanup  *service.ActivityCleanupService
	registry *service.SubjectRegistry
	logger   zerolog.Logger
}

// NewActivityHandler constructs the handler instance.
func NewActivityHandler(queries service.ActivityQueryService, recorder service.ActivityService, cleanup *service.ActivityCleanupService, registry *service.SubjectRegistry, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		queries:  queries,
		recorder: recorder,
		cleanup:  cleanup,
		registry: registry,
		logger:   logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires the reporting and cleanup routes. The caller guards the
// group with auth and role middleware.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/dashboard", h.dashboard)
	router.Get("/subject-types", h.subjectTypes)
	router.Get("/subject/:type/:id", h.forSubject)
	router.Get("/actor/:userId", h.byActor)
	router.Get("/log/:logName", h.byLogName)
	router.Post("/cleanup", h.runCleanup)
}

// RegisterRecord wires the manual submission route for authenticated clients.
func (h *ActivityHandler) RegisterRecord(router fiber.Router) {
	router.Post("/", h.record)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	req := dto.ActivityListRequest{
		Page:        page,
		PageSize:    pageSize,
		UserID:      c.Query("user_id"),
		Event:       c.Query("event"),
		LogName:     c.Query("log_name"),
		SubjectType: c.Query("subject_type"),
		BatchUUID:   c.Query("batch_uuid"),
	}

	result, err := h.queries.List(c.UserContext(), req)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activities")
	}

	return utils.SendSuccess(c, "activities retrieved", result)
}

func (h *ActivityHandler) record(c *fiber.Ctx) error {
	var req dto.ActivityCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.recorder.Record(c.UserContext(), userIDFromContext(c), req, requestMetaFromCtx(c))
	if err != nil {
		switch {
		case isValidationError(err), errors.Is(err, service.ErrDescriptionRequired), errors.Is(err, service.ErrSubjectIncomplete):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownSubjectType):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, "unknown subject type")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to record activity")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to record activity")
		}
	}

	return utils.SendCreated(c, "activity recorded", record)
}

func (h *ActivityHandler) dashboard(c *fiber.Ctx) error {
	result, err := h.queries.Dashboard(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to build activity dashboard")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build dashboard")
	}

	if result.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}

	return utils.SendSuccess(c, "activity dashboard", result)
}

func (h *ActivityHandler) subjectTypes(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "registered subject types", h.registry.Types())
}

func (h *ActivityHandler) forSubject(c *fiber.Ctx) error {
	subjectType := c.Params("type")
	subjectID := c.Params("id")
	if subjectType == "" || subjectID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "subject type and id required")
	}

	items, err := h.queries.ForSubject(c.UserContext(), subjectType, subjectID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list subject activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activities")
	}

	return utils.SendSuccess(c, "subject activities retrieved", items)
}

func (h *ActivityHandler) byActor(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "user id required")
	}

	items, err := h.queries.ByActor(c.UserContext(), userID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list actor activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activities")
	}

	return utils.SendSuccess(c, "actor activities retrieved", items)
}

func (h *ActivityHandler) byLogName(c *fiber.Ctx) error {
	logName := c.Params("logName")
	if logName == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "log name required")
	}

	items, err := h.queries.ByLogName(c.UserContext(), logName)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list log activities")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list activities")
	}

	return utils.SendSuccess(c, "log activities retrieved", items)
}

func (h *ActivityHandler) runCleanup(c *fiber.Ctx) error {
	days, err := parseQueryInt(c, "days")
	if err != nil || days < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid days")
	}

	result, err := h.cleanup.Cleanup(c.UserContext(), days)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("activity cleanup failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "cleanup failed")
	}

	return utils.SendSuccess(c, "activity log cleanup completed", result)
}

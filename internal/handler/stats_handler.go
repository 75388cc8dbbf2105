package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/service"
	"github.com/oakbyte/pulse-api/internal/utils"
)

// StatsHandler serves the admin overview counters.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler constructs the handler instance.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// Register wires the stats route.
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/", h.overview)
}

func (h *StatsHandler) overview(c *fiber.Ctx) error {
	result, err := h.service.Overview(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to compute stats")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to compute stats")
	}

	return utils.SendSuccess(c, "stats retrieved", result)
}

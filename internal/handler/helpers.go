package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/middleware"
	"github.com/oakbyte/pulse-api/internal/service"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func userIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

// requestMetaFromCtx captures the provenance fields every activity record
// carries: client address, agent, session and the correlation identifier.
func requestMetaFromCtx(c *fiber.Ctx) service.RequestMeta {
	sessionID := strings.TrimSpace(c.Get("X-Session-ID"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.Cookies("session_id"))
	}

	return service.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		SessionID: sessionID,
		RequestID: middleware.GetCorrelationID(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

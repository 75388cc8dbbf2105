package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/middleware"
	"github.com/oakbyte/pulse-api/internal/service"
)

// ActivityStreamHandler wires the live activity websocket upgrade.
type ActivityStreamHandler struct {
	service service.ActivityStreamService
	logger  zerolog.Logger
}

// NewActivityStreamHandler constructs the handler instance.
func NewActivityStreamHandler(service service.ActivityStreamService, logger zerolog.Logger) *ActivityStreamHandler {
	return &ActivityStreamHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_stream_handler").Logger(),
	}
}

// Register binds the stream route under the provided router group.
func (h *ActivityStreamHandler) Register(router fiber.Router) {
	router.Use("/stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/stream", websocket.New(h.handleConnection))
}

func (h *ActivityStreamHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	role := ""
	if value, ok := conn.Locals("user_role").(string); ok {
		role = value
	}
	correlation := ""
	if value, ok := conn.Locals("correlation_id").(string); ok {
		correlation = value
	}
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.StreamConnectionOptions{
		UserID:        userID,
		Role:          role,
		LogName:       strings.TrimSpace(conn.Query("log_name")),
		Event:         strings.TrimSpace(conn.Query("event")),
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Msg("activity stream connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Msg("activity stream disconnected")
}

func websocketUserID(conn *websocket.Conn) string {
	if value := conn.Locals("user_id"); value != nil {
		if id, ok := value.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/handler"
	"github.com/oakbyte/pulse-api/internal/service"
)

type stubRecordService struct {
	response dto.ActivityResponse
}

func (s stubRecordService) Record(context.Context, string, dto.ActivityCreateRequest, service.RequestMeta) (dto.ActivityResponse, error) {
	return s.response, nil
}

func TestActivityRecordContract(t *testing.T) {
	schema := compileSchema(t, "activity_record.schema.json")

	actorID := "9f0d8a50-0000-4000-8000-000000000001"
	response := dto.ActivityResponse{
		ID:          "3f1d8a50-0000-4000-8000-000000000003",
		LogName:     "reports",
		Description: "Exported the quarterly report",
		Event:       "export",
		SubjectType: "User",
		SubjectID:   actorID,
		UserID:      &actorID,
		Properties:  map[string]interface{}{"format": "csv"},
		IPAddress:   "203.0.113.9",
		RequestID:   "corr-1234",
		CreatedAt:   time.Now().UTC().Unix(),
	}

	activityHandler := handler.NewActivityHandler(nil, stubRecordService{response: response}, nil, nil, zerolog.Nop())

	app := fiber.New()
	activityHandler.RegisterRecord(app.Group("/api/v1/activities", func(c *fiber.Ctx) error {
		c.Locals("user_id", actorID)
		c.Locals("user_role", "user")
		return c.Next()
	}))

	payload := `{"description":"Exported the quarterly report","log_name":"reports","event":"export"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/activities", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.NoError(t, schema.Validate(decoded))
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, sink *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(sink.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestLoggerRoutesEntriesToChannels(t *testing.T) {
	var sink bytes.Buffer
	logger := NewCentralizedLogger(&sink, "app")

	logger.Info("started", nil, "")
	entry := lastEntry(t, &sink)
	require.Equal(t, "app", entry["channel"])
	require.Equal(t, "started", entry["message"])

	logger.Debug("detail", map[string]interface{}{"step": 2}, "worker")
	entry = lastEntry(t, &sink)
	require.Equal(t, "worker", entry["channel"])
	require.Equal(t, float64(2), entry["step"])

	logger.Error("boom", nil, "")
	entry = lastEntry(t, &sink)
	require.Equal(t, "error", entry["level"])
}

func TestChannelCloneKeepsParentUntouched(t *testing.T) {
	var sink bytes.Buffer
	logger := NewCentralizedLogger(&sink, "app")
	audit := logger.Channel("audit")

	audit.Info("from clone", nil, "")
	require.Equal(t, "audit", lastEntry(t, &sink)["channel"])

	logger.Info("from parent", nil, "")
	require.Equal(t, "app", lastEntry(t, &sink)["channel"])
}

func TestWithContextAttachesFieldsToEveryEntry(t *testing.T) {
	var sink bytes.Buffer
	logger := NewCentralizedLogger(&sink, "app").
		WithContext(map[string]interface{}{"node": "a"}).
		WithContext(map[string]interface{}{"region": "eu"})

	logger.Warning("degraded", map[string]interface{}{"lag_ms": 40}, "")

	entry := lastEntry(t, &sink)
	require.Equal(t, "a", entry["node"])
	require.Equal(t, "eu", entry["region"])
	require.Equal(t, float64(40), entry["lag_ms"])
}

func TestHelperChannels(t *testing.T) {
	var sink bytes.Buffer
	logger := NewCentralizedLogger(&sink, "app")

	logger.Activity("User created", map[string]interface{}{"event": "create"})
	entry := lastEntry(t, &sink)
	require.Equal(t, "activity", entry["channel"])
	require.Equal(t, "Activity: User created", entry["message"])

	logger.API("export requested", nil)
	entry = lastEntry(t, &sink)
	require.Equal(t, "api", entry["channel"])

	logger.Security("failed login", map[string]interface{}{"email": "a@b.c"})
	entry = lastEntry(t, &sink)
	require.Equal(t, "security", entry["channel"])
	require.Equal(t, "warn", entry["level"])
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSinkFailureNeverPropagates(t *testing.T) {
	logger := NewCentralizedLogger(brokenWriter{}, "app")

	// Must not panic or surface the write error to the caller.
	logger.Info("lost entry", nil, "")
	logger.Security("lost too", nil)
}

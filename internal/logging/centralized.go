package logging

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/observability"
)

// CentralizedLogger is the operational log sink shared by the activity engine
// and the rest of the service. It fans structured entries out per channel on
// top of zerolog. Writes are fire-and-forget: a failing sink never propagates
// an error to callers, it only increments a drop counter.
type CentralizedLogger struct {
	base           zerolog.Logger
	defaultChannel string
	context        map[string]interface{}
}

// NewCentralizedLogger builds a logger writing to the supplied sink. The sink
// is wrapped so that write failures are swallowed and counted instead of
// surfacing to the caller.
func NewCentralizedLogger(sink io.Writer, defaultChannel string) *CentralizedLogger {
	if sink == nil {
		sink = io.Discard
	}
	if defaultChannel == "" {
		defaultChannel = "app"
	}

	base := zerolog.New(&failsafeWriter{sink: sink}).With().Timestamp().Logger()

	return &CentralizedLogger{
		base:           base,
		defaultChannel: defaultChannel,
	}
}

// Channel returns a copy of the logger bound to the given channel.
func (l *CentralizedLogger) Channel(channel string) *CentralizedLogger {
	clone := *l
	if channel != "" {
		clone.defaultChannel = channel
	}
	return &clone
}

// WithContext returns a copy of the logger carrying extra context fields that
// are attached to every entry.
func (l *CentralizedLogger) WithContext(context map[string]interface{}) *CentralizedLogger {
	clone := *l
	merged := make(map[string]interface{}, len(l.context)+len(context))
	for k, v := range l.context {
		merged[k] = v
	}
	for k, v := range context {
		merged[k] = v
	}
	clone.context = merged
	return &clone
}

// Debug logs a debug entry on the given channel ("" uses the default).
func (l *CentralizedLogger) Debug(message string, context map[string]interface{}, channel string) {
	l.log(zerolog.DebugLevel, message, context, channel)
}

// Info logs an informational entry on the given channel ("" uses the default).
func (l *CentralizedLogger) Info(message string, context map[string]interface{}, channel string) {
	l.log(zerolog.InfoLevel, message, context, channel)
}

// Warning logs a warning entry on the given channel ("" uses the default).
func (l *CentralizedLogger) Warning(message string, context map[string]interface{}, channel string) {
	l.log(zerolog.WarnLevel, message, context, channel)
}

// Error logs an error entry on the given channel ("" uses the default).
func (l *CentralizedLogger) Error(message string, context map[string]interface{}, channel string) {
	l.log(zerolog.ErrorLevel, message, context, channel)
}

// Activity mirrors a committed activity record to the "activity" channel.
func (l *CentralizedLogger) Activity(description string, context map[string]interface{}) {
	l.Info("Activity: "+description, context, "activity")
}

// API records an API-level event on the "api" channel.
func (l *CentralizedLogger) API(action string, context map[string]interface{}) {
	l.Info("API: "+action, context, "api")
}

// Security records a security-relevant event on the "security" channel.
func (l *CentralizedLogger) Security(event string, context map[string]interface{}) {
	l.Warning("Security: "+event, context, "security")
}

func (l *CentralizedLogger) log(level zerolog.Level, message string, context map[string]interface{}, channel string) {
	if channel == "" {
		channel = l.defaultChannel
	}

	event := l.base.WithLevel(level).Str("channel", channel)
	for key, value := range l.context {
		event = event.Interface(key, value)
	}
	for key, value := range context {
		event = event.Interface(key, value)
	}
	event.Msg(message)
}

// failsafeWriter swallows sink errors so that operational logging can never
// fail the primary activity commit.
type failsafeWriter struct {
	sink io.Writer
}

func (w *failsafeWriter) Write(p []byte) (int, error) {
	if _, err := w.sink.Write(p); err != nil {
		observability.LogSinkFailures().Inc()
	}
	return len(p), nil
}

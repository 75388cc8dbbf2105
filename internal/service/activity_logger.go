package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/oakbyte/pulse-api/internal/logging"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/observability"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// ErrDescriptionRequired indicates a commit without a description.
var ErrDescriptionRequired = errors.New("activity description is required")

// ErrSubjectIncomplete indicates a subject reference missing its type or id.
var ErrSubjectIncomplete = errors.New("activity subject must carry both type and id")

// Subject identifies an entity in polymorphic activity references.
type Subject interface {
	SubjectType() string
	SubjectID() string
}

// Auditable is a Subject whose attribute set can be captured for diffing.
type Auditable interface {
	Subject
	AuditAttributes() map[string]interface{}
}

// RequestMeta carries request provenance. It is extracted at the call site
// (handler helpers) and passed explicitly; the builder never reaches for
// ambient request state.
type RequestMeta struct {
	IPAddress string
	UserAgent string
	SessionID string
	RequestID string
}

// Broadcaster fans freshly committed records out to live consumers.
// Implementations must swallow their own failures; a broken stream must never
// fail the primary commit.
type Broadcaster interface {
	BroadcastActivity(ctx context.Context, record models.ActivityLog)
}

// ActivityLogger builds and commits activity records. It hands out one Entry
// per logical operation; Entry instances are not safe for concurrent use.
type ActivityLogger struct {
	repo        repository.ActivityLogRepository
	fileLogger  *logging.CentralizedLogger
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewActivityLogger constructs the activity logger. The broadcaster may be nil.
func NewActivityLogger(repo repository.ActivityLogRepository, fileLogger *logging.CentralizedLogger, broadcaster Broadcaster, logger zerolog.Logger) *ActivityLogger {
	return &ActivityLogger{
		repo:        repo,
		fileLogger:  fileLogger,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "activity_logger").Logger(),
	}
}

// NewEntry returns a fresh builder for one pending activity record.
func (l *ActivityLogger) NewEntry() *Entry {
	return &Entry{logger: l}
}

// Batch generates a correlation id and invokes the unit of work with a
// factory producing batch-tagged entries. Every entry created through the
// factory shares the returned batch id.
func (l *ActivityLogger) Batch(work func(entry func() *Entry)) string {
	batchUUID := uuid.NewString()
	work(func() *Entry {
		return l.NewEntry().InBatch(batchUUID)
	})
	return batchUUID
}

// Entry accumulates the fields of one pending activity record across a fluent
// chain, then materializes it with Log. State resets after a successful
// commit so the entry can be reused for the next record.
type Entry struct {
	logger     *ActivityLogger
	logName    string
	userID     string
	subject    Subject
	event      string
	properties map[string]interface{}
	oldValues  map[string]interface{}
	newValues  map[string]interface{}
	batchUUID  string
	request    RequestMeta
}

// WithName sets the log name used to group activities.
func (e *Entry) WithName(logName string) *Entry {
	e.logName = logName
	return e
}

// CausedBy sets the acting principal. An empty id means a system action;
// there is no ambient fallback.
func (e *Entry) CausedBy(userID string) *Entry {
	e.userID = userID
	return e
}

// PerformedOn sets the subject of the activity.
func (e *Entry) PerformedOn(subject Subject) *Entry {
	e.subject = subject
	return e
}

// WithEvent sets the event kind. Free-form strings are accepted alongside
// the models.LogEvent constants.
func (e *Entry) WithEvent(event models.LogEvent) *Entry {
	e.event = string(event)
	return e
}

// WithProperties merges additional properties; later keys overwrite earlier
// ones on conflict.
func (e *Entry) WithProperties(properties map[string]interface{}) *Entry {
	if len(properties) == 0 {
		return e
	}
	if e.properties == nil {
		e.properties = make(map[string]interface{}, len(properties))
	}
	for key, value := range properties {
		e.properties[key] = value
	}
	return e
}

// WithProperty sets a single property.
func (e *Entry) WithProperty(key string, value interface{}) *Entry {
	if e.properties == nil {
		e.properties = make(map[string]interface{}, 1)
	}
	e.properties[key] = value
	return e
}

// WithOldValues sets the before-change payload directly.
func (e *Entry) WithOldValues(oldValues map[string]interface{}) *Entry {
	e.oldValues = oldValues
	return e
}

// WithNewValues sets the after-change payload directly.
func (e *Entry) WithNewValues(newValues map[string]interface{}) *Entry {
	e.newValues = newValues
	return e
}

// WithModelChanges captures diff state from an entity mutation. A nil before
// snapshot marks a freshly created entity: the full attribute set becomes the
// new values and the event defaults to create. Otherwise only attributes that
// actually changed appear in the old/new payloads and the event defaults to
// update.
func (e *Entry) WithModelChanges(subject Auditable, before map[string]interface{}) *Entry {
	e.subject = subject
	after := subject.AuditAttributes()

	if before == nil {
		e.newValues = after
		if e.event == "" {
			e.event = string(models.EventCreate)
		}
		return e
	}

	e.oldValues, e.newValues = DiffAttributes(before, after)
	if e.event == "" {
		e.event = string(models.EventUpdate)
	}
	return e
}

// InBatch tags the entry with a batch correlation id, generating a random one
// when none is supplied.
func (e *Entry) InBatch(batchUUID string) *Entry {
	if batchUUID == "" {
		batchUUID = uuid.NewString()
	}
	e.batchUUID = batchUUID
	return e
}

// WithRequest attaches request provenance captured at the call site.
func (e *Entry) WithRequest(meta RequestMeta) *Entry {
	e.request = meta
	return e
}

// Log materializes the pending record, persists it, mirrors a summary to the
// centralized logger and the live stream, resets the builder state and
// returns the created record. Persistence failures propagate to the caller;
// secondary sink failures never do.
func (e *Entry) Log(ctx context.Context, description string) (models.ActivityLog, error) {
	if strings.TrimSpace(description) == "" {
		return models.ActivityLog{}, ErrDescriptionRequired
	}

	record := models.ActivityLog{
		LogName:     e.logName,
		Description: description,
		Event:       e.event,
		Properties:  datatypes.JSONMap(e.properties),
		OldValues:   datatypes.JSONMap(e.oldValues),
		NewValues:   datatypes.JSONMap(e.newValues),
		BatchUUID:   e.batchUUID,
		IPAddress:   e.request.IPAddress,
		UserAgent:   e.request.UserAgent,
		SessionID:   e.request.SessionID,
		RequestID:   e.request.RequestID,
	}

	if e.subject != nil {
		subjectType := e.subject.SubjectType()
		subjectID := e.subject.SubjectID()
		if subjectType == "" || subjectID == "" {
			return models.ActivityLog{}, ErrSubjectIncomplete
		}
		record.SubjectType = subjectType
		record.SubjectID = subjectID
	}

	if e.userID != "" {
		userID := e.userID
		record.UserID = &userID
	}

	if err := e.logger.repo.Create(ctx, &record); err != nil {
		e.logger.logger.Error().Err(err).Str("event", record.Event).Msg("failed to persist activity record")
		return models.ActivityLog{}, err
	}

	eventLabel := record.Event
	if eventLabel == "" {
		eventLabel = "none"
	}
	observability.ActivityRecords().WithLabelValues(eventLabel).Inc()

	e.logger.mirror(description, record)
	if e.logger.broadcaster != nil {
		e.logger.broadcaster.BroadcastActivity(ctx, record)
	}

	e.reset()

	return record, nil
}

// Created commits a creation record for the subject, capturing its full
// attribute set as new values.
func (e *Entry) Created(ctx context.Context, subject Auditable, description string) (models.ActivityLog, error) {
	if description == "" {
		description = fmt.Sprintf("%s created", subject.SubjectType())
	}
	return e.PerformedOn(subject).
		WithEvent(models.EventCreate).
		WithModelChanges(subject, nil).
		Log(ctx, description)
}

// Updated commits an update record for the subject, diffing the before
// snapshot against the subject's current attributes.
func (e *Entry) Updated(ctx context.Context, subject Auditable, before map[string]interface{}, description string) (models.ActivityLog, error) {
	if description == "" {
		description = fmt.Sprintf("%s updated", subject.SubjectType())
	}
	return e.PerformedOn(subject).
		WithEvent(models.EventUpdate).
		WithModelChanges(subject, before).
		Log(ctx, description)
}

// Deleted commits a deletion record, preserving the subject's last attribute
// set as old values.
func (e *Entry) Deleted(ctx context.Context, subject Auditable, description string) (models.ActivityLog, error) {
	if description == "" {
		description = fmt.Sprintf("%s deleted", subject.SubjectType())
	}
	return e.PerformedOn(subject).
		WithEvent(models.EventDelete).
		WithOldValues(subject.AuditAttributes()).
		Log(ctx, description)
}

// Restored commits a restore record for a previously deleted subject,
// capturing the attribute set coming back as new values.
func (e *Entry) Restored(ctx context.Context, subject Auditable, description string) (models.ActivityLog, error) {
	if description == "" {
		description = fmt.Sprintf("%s restored", subject.SubjectType())
	}
	return e.PerformedOn(subject).
		WithEvent(models.EventRestore).
		WithNewValues(subject.AuditAttributes()).
		Log(ctx, description)
}

// Login commits an authentication success record for the user.
func (e *Entry) Login(ctx context.Context, userID string, properties map[string]interface{}) (models.ActivityLog, error) {
	return e.WithName("auth").
		CausedBy(userID).
		WithEvent(models.EventLogin).
		WithProperties(properties).
		Log(ctx, "User logged in")
}

// Logout commits a logout record for the user.
func (e *Entry) Logout(ctx context.Context, userID string, properties map[string]interface{}) (models.ActivityLog, error) {
	return e.WithName("auth").
		CausedBy(userID).
		WithEvent(models.EventLogout).
		WithProperties(properties).
		Log(ctx, "User logged out")
}

// FailedLogin commits a failed authentication attempt. There is no subject
// and no actor; the attempted email lands in the properties.
func (e *Entry) FailedLogin(ctx context.Context, email string, properties map[string]interface{}) (models.ActivityLog, error) {
	return e.WithName("auth").
		WithEvent(models.EventFailedLogin).
		WithProperty("email", email).
		WithProperties(properties).
		Log(ctx, "Failed login attempt")
}

func (e *Entry) reset() {
	e.logName = ""
	e.userID = ""
	e.subject = nil
	e.event = ""
	e.properties = nil
	e.oldValues = nil
	e.newValues = nil
	e.batchUUID = ""
	e.request = RequestMeta{}
}

func (l *ActivityLogger) mirror(description string, record models.ActivityLog) {
	if l.fileLogger == nil {
		return
	}

	l.fileLogger.Activity(description, map[string]interface{}{
		"log_name":     record.LogName,
		"event":        record.Event,
		"subject_type": record.SubjectType,
		"subject_id":   record.SubjectID,
		"user_id":      record.UserID,
		"batch_uuid":   record.BatchUUID,
		"request_id":   record.RequestID,
		"has_changes":  len(record.OldValues) > 0 && len(record.NewValues) > 0,
	})
}

// DiffAttributes compares two attribute snapshots and returns the before and
// after payloads keyed only by attributes that actually changed. Attributes
// absent from the before snapshot appear in the after payload alone.
func DiffAttributes(before, after map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	oldValues := make(map[string]interface{})
	newValues := make(map[string]interface{})

	for key, newValue := range after {
		oldValue, existed := before[key]
		if !existed {
			newValues[key] = newValue
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			oldValues[key] = oldValue
			newValues[key] = newValue
		}
	}

	if len(oldValues) == 0 {
		oldValues = nil
	}
	if len(newValues) == 0 {
		newValues = nil
	}
	return oldValues, newValues
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/models"
)

// AuditPolicy lets an entity type override the observer defaults: which
// lifecycle transitions are recorded, whether no-op updates are skipped and
// the log name used for grouping.
type AuditPolicy interface {
	TrackedActivityEvents() []models.LogEvent
	SkipUnchangedActivity() bool
	ActivityLogName() string
}

// ObserverInput carries everything one lifecycle notification needs: the
// acting principal, request provenance, the mutated entity, the pre-change
// snapshot (updates only) and entity-specific extension properties.
type ObserverInput struct {
	Actor      string
	Request    RequestMeta
	Subject    Auditable
	Before     map[string]interface{}
	Properties map[string]interface{}
}

// ActivityObserver records entity lifecycle transitions through the activity
// logger. The persistence-facing services invoke it explicitly after each
// mutation; entities opt in by implementing Auditable. The observer is
// disabled in non-interactive execution (seeds, CLI) unless configuration
// re-enables it.
type ActivityObserver struct {
	activity *ActivityLogger
	enabled  bool
	logger   zerolog.Logger
}

// NewActivityObserver constructs the observer.
func NewActivityObserver(activity *ActivityLogger, enabled bool, logger zerolog.Logger) *ActivityObserver {
	return &ActivityObserver{
		activity: activity,
		enabled:  enabled,
		logger:   logger.With().Str("component", "activity_observer").Logger(),
	}
}

// Enabled reports whether lifecycle notifications are being recorded.
func (o *ActivityObserver) Enabled() bool {
	return o.enabled
}

// EntityCreated records a creation transition. Returns the zero record when
// the observer is disabled or the entity does not track creations.
func (o *ActivityObserver) EntityCreated(ctx context.Context, in ObserverInput) (models.ActivityLog, error) {
	if !o.shouldRecord(in.Subject, models.EventCreate) {
		return models.ActivityLog{}, nil
	}

	return o.entry(in).Created(ctx, in.Subject, transitionDescription(in.Subject, "Created"))
}

// EntityUpdated records an update transition. No-op updates are skipped when
// the entity's policy says so (the default).
func (o *ActivityObserver) EntityUpdated(ctx context.Context, in ObserverInput) (models.ActivityLog, error) {
	if !o.shouldRecord(in.Subject, models.EventUpdate) {
		return models.ActivityLog{}, nil
	}

	if skipUnchanged(in.Subject) {
		_, changed := DiffAttributes(in.Before, in.Subject.AuditAttributes())
		if len(changed) == 0 {
			return models.ActivityLog{}, nil
		}
	}

	return o.entry(in).Updated(ctx, in.Subject, in.Before, transitionDescription(in.Subject, "Updated"))
}

// EntityDeleted records a deletion transition.
func (o *ActivityObserver) EntityDeleted(ctx context.Context, in ObserverInput) (models.ActivityLog, error) {
	if !o.shouldRecord(in.Subject, models.EventDelete) {
		return models.ActivityLog{}, nil
	}

	return o.entry(in).Deleted(ctx, in.Subject, transitionDescription(in.Subject, "Deleted"))
}

// EntityRestored records a restore transition.
func (o *ActivityObserver) EntityRestored(ctx context.Context, in ObserverInput) (models.ActivityLog, error) {
	if !o.shouldRecord(in.Subject, models.EventRestore) {
		return models.ActivityLog{}, nil
	}

	return o.entry(in).Restored(ctx, in.Subject, transitionDescription(in.Subject, "Restored"))
}

func (o *ActivityObserver) entry(in ObserverInput) *Entry {
	return o.activity.NewEntry().
		WithName(logNameFor(in.Subject)).
		CausedBy(in.Actor).
		WithRequest(in.Request).
		WithProperties(in.Properties)
}

func (o *ActivityObserver) shouldRecord(subject Auditable, event models.LogEvent) bool {
	if !o.enabled || subject == nil {
		return false
	}

	for _, tracked := range trackedEvents(subject) {
		if tracked == event {
			return true
		}
	}
	return false
}

// Default transitions recorded for entities without an explicit policy.
var defaultTrackedEvents = []models.LogEvent{models.EventCreate, models.EventUpdate, models.EventDelete}

func trackedEvents(subject Auditable) []models.LogEvent {
	if policy, ok := subject.(AuditPolicy); ok {
		if events := policy.TrackedActivityEvents(); events != nil {
			return events
		}
	}
	return defaultTrackedEvents
}

func skipUnchanged(subject Auditable) bool {
	if policy, ok := subject.(AuditPolicy); ok {
		return policy.SkipUnchangedActivity()
	}
	return true
}

func logNameFor(subject Auditable) string {
	if policy, ok := subject.(AuditPolicy); ok {
		if name := policy.ActivityLogName(); name != "" {
			return name
		}
	}
	return strings.ToLower(subject.SubjectType())
}

func transitionDescription(subject Auditable, transition string) string {
	return fmt.Sprintf("%s %s", subject.SubjectType(), transition)
}

package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LogEvent is the recommended enumerated subset of activity event kinds.
// Events are stored as open strings; free-form values such as "failed_login"
// are accepted alongside the constants below.
type LogEvent string

const (
	EventCreate  LogEvent = "create"
	EventUpdate  LogEvent = "update"
	EventDelete  LogEvent = "delete"
	EventView    LogEvent = "view"
	EventExport  LogEvent = "export"
	EventRestore LogEvent = "restore"
	EventLogin   LogEvent = "login"
	EventLogout  LogEvent = "logout"

	// EventFailedLogin is a free-form event outside the enumerated subset.
	EventFailedLogin LogEvent = "failed_login"
)

// Defined reports whether the event belongs to the enumerated subset.
func (e LogEvent) Defined() bool {
	switch e {
	case EventCreate, EventUpdate, EventDelete, EventView, EventExport, EventRestore, EventLogin, EventLogout:
		return true
	}
	return false
}

// ActivityLog is an append-only audit record. Records are immutable after
// creation; the only delete path is the age-based retention cleanup.
type ActivityLog struct {
	ID          string            `gorm:"type:uuid;primaryKey" json:"id"`
	LogName     string            `gorm:"size:64;index:idx_activity_logname_created,priority:1" json:"log_name,omitempty"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Event       string            `gorm:"size:64;index:idx_activity_event_created,priority:1" json:"event,omitempty"`
	SubjectType string            `gorm:"size:64;index:idx_activity_subject,priority:1" json:"subject_type,omitempty"`
	SubjectID   string            `gorm:"size:36;index:idx_activity_subject,priority:2" json:"subject_id,omitempty"`
	UserID      *string           `gorm:"type:uuid;index:idx_activity_actor_created,priority:1" json:"user_id,omitempty"`
	Properties  datatypes.JSONMap `gorm:"type:json" json:"properties,omitempty"`
	OldValues   datatypes.JSONMap `gorm:"type:json" json:"old_values,omitempty"`
	NewValues   datatypes.JSONMap `gorm:"type:json" json:"new_values,omitempty"`
	BatchUUID   string            `gorm:"size:36;index" json:"batch_uuid,omitempty"`
	IPAddress   string            `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent   string            `gorm:"type:text" json:"user_agent,omitempty"`
	SessionID   string            `gorm:"size:128" json:"session_id,omitempty"`
	RequestID   string            `gorm:"size:64;index" json:"request_id,omitempty"`
	CreatedAt   int64             `gorm:"autoCreateTime;index:idx_activity_actor_created,priority:2;index:idx_activity_logname_created,priority:2;index:idx_activity_event_created,priority:2" json:"created_at"`
	UpdatedAt   int64             `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the storage table for activity records.
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// BeforeCreate assigns the UUID primary key when absent.
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AttributeChange pairs the before/after value of one changed attribute.
type AttributeChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// Changes lines up old and new values into per-attribute change pairs.
// Attributes present in only one of the two maps are skipped.
func (a *ActivityLog) Changes() map[string]AttributeChange {
	if a.OldValues == nil || a.NewValues == nil {
		return nil
	}

	changes := make(map[string]AttributeChange)
	for key, newValue := range a.NewValues {
		oldValue, ok := a.OldValues[key]
		if !ok {
			continue
		}
		if oldValue != newValue {
			changes[key] = AttributeChange{Old: oldValue, New: newValue}
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

// HasProperty reports whether the free-form property map contains the key.
func (a *ActivityLog) HasProperty(key string) bool {
	if a.Properties == nil {
		return false
	}
	_, ok := a.Properties[key]
	return ok
}

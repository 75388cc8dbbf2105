package dto

import (
	"time"

	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActorSummary is the resolved acting principal attached to activity reads.
type ActorSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubjectSummary is the resolved polymorphic subject attached to activity reads.
type SubjectSummary struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ActivityResponse serializes one activity record, optionally with resolved
// actor and subject references.
type ActivityResponse struct {
	ID          string                            `json:"id"`
	LogName     string                            `json:"log_name,omitempty"`
	Description string                            `json:"description"`
	Event       string                            `json:"event,omitempty"`
	SubjectType string                            `json:"subject_type,omitempty"`
	SubjectID   string                            `json:"subject_id,omitempty"`
	UserID      *string                           `json:"user_id,omitempty"`
	Properties  map[string]interface{}            `json:"properties,omitempty"`
	OldValues   map[string]interface{}            `json:"old_values,omitempty"`
	NewValues   map[string]interface{}            `json:"new_values,omitempty"`
	Changes     map[string]models.AttributeChange `json:"changes,omitempty"`
	BatchUUID   string                            `json:"batch_uuid,omitempty"`
	IPAddress   string                            `json:"ip_address,omitempty"`
	RequestID   string                            `json:"request_id,omitempty"`
	Actor       *ActorSummary                     `json:"actor,omitempty"`
	Subject     *SubjectSummary                   `json:"subject,omitempty"`
	CreatedAt   int64                             `json:"created_at"`
}

// NewActivityResponse converts an activity record into its DTO.
func NewActivityResponse(record models.ActivityLog) ActivityResponse {
	return ActivityResponse{
		ID:          record.ID,
		LogName:     record.LogName,
		Description: record.Description,
		Event:       record.Event,
		SubjectType: record.SubjectType,
		SubjectID:   record.SubjectID,
		UserID:      record.UserID,
		Properties:  record.Properties,
		OldValues:   record.OldValues,
		NewValues:   record.NewValues,
		Changes:     record.Changes(),
		BatchUUID:   record.BatchUUID,
		IPAddress:   record.IPAddress,
		RequestID:   record.RequestID,
		CreatedAt:   record.CreatedAt,
	}
}

// ActivityListRequest defines filters for the admin activity listing.
type ActivityListRequest struct {
	Page        int
	PageSize    int
	UserID      string
	Event       string
	LogName     string
	SubjectType string
	BatchUUID   string
}

// ActivityListResponse wraps a paginated activity listing.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// ActivityCreateRequest captures a manual activity record submission.
type ActivityCreateRequest struct {
	Description string                 `json:"description" validate:"required,min=1,max=2000"`
	LogName     string                 `json:"log_name" validate:"omitempty,max=64"`
	Event       string                 `json:"event" validate:"omitempty,max=64"`
	SubjectType string                 `json:"subject_type" validate:"omitempty,max=64"`
	SubjectID   string                 `json:"subject_id" validate:"omitempty,uuid4,required_with=SubjectType"`
	Properties  map[string]interface{} `json:"properties"`
}

// ActivitySummaryCounts groups the rolling dashboard counters.
type ActivitySummaryCounts struct {
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"this_week"`
	ThisMonth int64 `json:"this_month"`
}

// DashboardResponse is the aggregated reporting payload.
type DashboardResponse struct {
	RecentActivities []ActivityResponse       `json:"recent_activities"`
	Summary          ActivitySummaryCounts    `json:"summary"`
	TopEvents        []repository.EventCount  `json:"top_events"`
	MostActiveActors []MostActiveActor        `json:"most_active_actors"`
	WindowDays       int                      `json:"window_days"`
	GeneratedAt      time.Time                `json:"generated_at"`
	CacheHit         bool                     `json:"cache_hit"`
}

// MostActiveActor is one most-active row with the actor resolved.
type MostActiveActor struct {
	UserID string        `json:"user_id"`
	Count  int64         `json:"count"`
	Actor  *ActorSummary `json:"actor,omitempty"`
}

// CleanupResponse reports the result of one retention cleanup run.
type CleanupResponse struct {
	DeletedRecords int64 `json:"deleted_records"`
	DaysKept       int   `json:"days_kept"`
}

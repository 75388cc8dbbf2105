package dto

import (
	"time"

	"github.com/oakbyte/pulse-api/internal/models"
)

// AdminResponse serializes a back-office account.
type AdminResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewAdminResponse converts an admin model into its DTO.
func NewAdminResponse(admin models.Admin) AdminResponse {
	return AdminResponse{
		ID:          admin.ID,
		Name:        admin.Name,
		Email:       admin.Email,
		Role:        admin.Role,
		Status:      admin.Status,
		LastLoginAt: admin.LastLoginAt,
		CreatedAt:   admin.CreatedAt,
		UpdatedAt:   admin.UpdatedAt,
	}
}

// AdminInviteRequest captures the creation of a new admin account. A temporary
// password is generated server-side and returned once.
type AdminInviteRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin superadmin"`
}

// AdminInviteResponse returns the created admin plus the one-time password.
type AdminInviteResponse struct {
	Admin             AdminResponse `json:"admin"`
	TemporaryPassword string        `json:"temporary_password"`
}

// AdminUpdateRequest captures partial admin updates.
type AdminUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=255"`
	Role   *string `json:"role" validate:"omitempty,oneof=admin superadmin"`
	Status *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// AdminListResponse wraps a paginated admin listing.
type AdminListResponse struct {
	Items      []AdminResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// AdminActivityLogResponse serializes one admin audit record.
type AdminActivityLogResponse struct {
	ID        string                 `json:"id"`
	AdminID   *string                `json:"admin_id,omitempty"`
	Action    string                 `json:"action"`
	ModelType string                 `json:"model_type,omitempty"`
	ModelID   string                 `json:"model_id,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Admin     *ActorSummary          `json:"admin,omitempty"`
	CreatedAt int64                  `json:"created_at"`
}

// NewAdminActivityLogResponse converts an admin audit record into its DTO.
func NewAdminActivityLogResponse(record models.AdminActivityLog) AdminActivityLogResponse {
	return AdminActivityLogResponse{
		ID:        record.ID,
		AdminID:   record.AdminID,
		Action:    record.Action,
		ModelType: record.ModelType,
		ModelID:   record.ModelID,
		Meta:      record.Meta,
		CreatedAt: record.CreatedAt,
	}
}

// AdminActivityLogListResponse wraps a paginated admin audit listing.
type AdminActivityLogListResponse struct {
	Items      []AdminActivityLogResponse `json:"items"`
	Pagination PaginationMeta             `json:"pagination"`
}

// StatsResponse is the aggregate counters endpoint payload.
type StatsResponse struct {
	TotalUsers      int64                 `json:"total_users"`
	TotalAdmins     int64                 `json:"total_admins"`
	ActivitySummary ActivitySummaryCounts `json:"activity_summary"`
}

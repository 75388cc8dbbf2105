package dto

import (
	"time"

	"github.com/oakbyte/pulse-api/internal/models"
)

// UserResponse serializes an end-user account.
type UserResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewUserResponse converts a user model into its DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Status:      user.Status,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// UserUpdateRequest captures partial profile updates.
type UserUpdateRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// AdminUserUpdateRequest captures admin-side user updates.
type AdminUserUpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Role   *string `json:"role" validate:"omitempty,oneof=user admin superadmin"`
	Status *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// UserListRequest defines filters for listing users.
type UserListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	Role     string
}

// UserListResponse wraps a paginated user listing.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

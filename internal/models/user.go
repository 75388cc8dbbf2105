package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values carried in JWT claims and checked by the RBAC middleware.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// User represents an end-user account.
type User struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Email       string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Role        string         `gorm:"size:32;not null;default:user" json:"role"`
	Status      string         `gorm:"size:32;not null;default:active" json:"status"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the UUID primary key when absent.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// SubjectType tags users in polymorphic activity references.
func (u *User) SubjectType() string { return "User" }

// SubjectID returns the identifier used in polymorphic activity references.
func (u *User) SubjectID() string { return u.ID }

// AuditAttributes exposes the attribute set captured by activity diffing.
// The password hash is deliberately excluded.
func (u *User) AuditAttributes() map[string]interface{} {
	return map[string]interface{}{
		"name":   u.Name,
		"email":  u.Email,
		"role":   u.Role,
		"status": u.Status,
	}
}

// Admin represents a back-office account.
type Admin struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"size:255;not null" json:"name"`
	Email       string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Role        string         `gorm:"size:32;not null;default:admin" json:"role"`
	Status      string         `gorm:"size:32;not null;default:active" json:"status"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName keeps the original storage table name for admin accounts.
func (Admin) TableName() string {
	return "system_users"
}

// BeforeCreate assigns the UUID primary key when absent.
func (a *Admin) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// SubjectType tags admins in polymorphic activity references.
func (a *Admin) SubjectType() string { return "Admin" }

// SubjectID returns the identifier used in polymorphic activity references.
func (a *Admin) SubjectID() string { return a.ID }

// AuditAttributes exposes the attribute set captured by activity diffing.
func (a *Admin) AuditAttributes() map[string]interface{} {
	return map[string]interface{}{
		"name":   a.Name,
		"email":  a.Email,
		"role":   a.Role,
		"status": a.Status,
	}
}

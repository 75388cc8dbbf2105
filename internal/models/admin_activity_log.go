package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminActivityLog is the secondary audit table dedicated to administrative
// actions against managed entities.
type AdminActivityLog struct {
	ID        string            `gorm:"type:uuid;primaryKey" json:"id"`
	AdminID   *string           `gorm:"type:uuid;index" json:"admin_id,omitempty"`
	Action    string            `gorm:"size:128;not null" json:"action"`
	ModelType string            `gorm:"size:64;index:idx_admin_activity_model,priority:1" json:"model_type,omitempty"`
	ModelID   string            `gorm:"size:36;index:idx_admin_activity_model,priority:2" json:"model_id,omitempty"`
	Meta      datatypes.JSONMap `gorm:"type:json" json:"meta,omitempty"`
	CreatedAt int64             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int64             `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the storage table for admin activity records.
func (AdminActivityLog) TableName() string {
	return "admin_activity_logs"
}

// BeforeCreate assigns the UUID primary key when absent.
func (a *AdminActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

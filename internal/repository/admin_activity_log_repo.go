package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/models"
)

// AdminActivityLogFilter narrows admin audit listings.
type AdminActivityLogFilter struct {
	Page      int
	PageSize  int
	AdminID   *string
	Action    string
	ModelType string
	ModelID   string
}

// AdminActivityLogRepository persists the secondary admin audit trail.
type AdminActivityLogRepository interface {
	Create(ctx context.Context, record *models.AdminActivityLog) error
	List(ctx context.Context, filter AdminActivityLogFilter) ([]models.AdminActivityLog, int64, error)
}

type adminActivityLogRepository struct {
	db *gorm.DB
}

// NewAdminActivityLogRepository constructs the admin activity log repository.
func NewAdminActivityLogRepository(db *gorm.DB) AdminActivityLogRepository {
	return &adminActivityLogRepository{db: db}
}

func (r *adminActivityLogRepository) Create(ctx context.Context, record *models.AdminActivityLog) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *adminActivityLogRepository) List(ctx context.Context, filter AdminActivityLogFilter) ([]models.AdminActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AdminActivityLog{})

	if filter.AdminID != nil {
		query = query.Where("admin_id = ?", *filter.AdminID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ModelType != "" {
		query = query.Where("model_type = ?", filter.ModelType)
	}
	if filter.ModelID != "" {
		query = query.Where("model_id = ?", filter.ModelID)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var records []models.AdminActivityLog
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

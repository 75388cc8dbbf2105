package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/models"
)

// ActivityLogFilter narrows the admin activity listing.
type ActivityLogFilter struct {
	Page        int
	PageSize    int
	UserID      *string
	Event       string
	LogName     string
	SubjectType string
	BatchUUID   string
}

// EventCount is one aggregation row of the top-events report.
type EventCount struct {
	Event string `json:"event"`
	Count int64  `json:"count"`
}

// ActorCount is one aggregation row of the most-active-actors report.
type ActorCount struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}

// ActivityLogRepository is the append-only store for activity records.
// Records are never updated; the only delete path is DeleteOlderThan.
type ActivityLogRepository interface {
	Create(ctx context.Context, record *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
	ListBySubject(ctx context.Context, subjectType, subjectID string) ([]models.ActivityLog, error)
	ListByActor(ctx context.Context, userID string) ([]models.ActivityLog, error)
	ListByLogName(ctx context.Context, logName string) ([]models.ActivityLog, error)
	ListByBatch(ctx context.Context, batchUUID string) ([]models.ActivityLog, error)
	ListRecent(ctx context.Context, since time.Time, limit int) ([]models.ActivityLog, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountBetween(ctx context.Context, start, end time.Time) (int64, error)
	TopEvents(ctx context.Context, since time.Time, limit int) ([]EventCount, error)
	MostActiveActors(ctx context.Context, since time.Time, limit int) ([]ActorCount, error)
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, record *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if filter.LogName != "" {
		query = query.Where("log_name = ?", filter.LogName)
	}
	if filter.SubjectType != "" {
		query = query.Where("subject_type = ?", filter.SubjectType)
	}
	if filter.BatchUUID != "" {
		query = query.Where("batch_uuid = ?", filter.BatchUUID)
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

	var records []models.ActivityLog
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *activityLogRepository) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]models.ActivityLog, error) {
	var records []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *activityLogRepository) ListByActor(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	var records []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *activityLogRepository) ListByLogName(ctx context.Context, logName string) ([]models.ActivityLog, error) {
	var records []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("log_name = ?", logName).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *activityLogRepository) ListByBatch(ctx context.Context, batchUUID string) ([]models.ActivityLog, error) {
	var records []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("batch_uuid = ?", batchUUID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

func (r *activityLogRepository) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).
		Where("created_at >= ?", since.Unix()).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.ActivityLog
	err := query.Find(&records).Error
	return records, err
}

func (r *activityLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("created_at >= ?", since.Unix()).
		Count(&total).Error
	return total, err
}

func (r *activityLogRepository) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("created_at >= ? AND created_at < ?", start.Unix(), end.Unix()).
		Count(&total).Error
	return total, err
}

func (r *activityLogRepository) TopEvents(ctx context.Context, since time.Time, limit int) ([]EventCount, error) {
	var rows []EventCount
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("event, COUNT(*) AS count").
		Where("created_at >= ? AND event <> ''", since.Unix()).
		Group("event").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *activityLogRepository) MostActiveActors(ctx context.Context, since time.Time, limit int) ([]ActorCount, error) {
	var rows []ActorCount
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("user_id, COUNT(*) AS count").
		Where("created_at >= ? AND user_id IS NOT NULL", since.Unix()).
		Group("user_id").
		Order("count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *activityLogRepository) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", threshold.Unix()).
		Delete(&models.ActivityLog{})
	return result.RowsAffected, result.Error
}

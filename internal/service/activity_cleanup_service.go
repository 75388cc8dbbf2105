package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/config"
	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/logging"
	"github.com/oakbyte/pulse-api/internal/observability"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// ActivityCleanupService prunes activity records past the retention window.
type ActivityCleanupService struct {
	repo          repository.ActivityLogRepository
	fileLogger    *logging.CentralizedLogger
	retentionDays int
	logger        zerolog.Logger
}

// NewActivityCleanupService wires the cleanup job. retentionDays is the
// configured default used when a run does not override it.
func NewActivityCleanupService(repo repository.ActivityLogRepository, fileLogger *logging.CentralizedLogger, retentionDays int, logger zerolog.Logger) *ActivityCleanupService {
	if retentionDays <= 0 {
		retentionDays = config.DefaultActivityRetentionDays
	}

	return &ActivityCleanupService{
		repo:          repo,
		fileLogger:    fileLogger,
		retentionDays: retentionDays,
		logger:        logger.With().Str("component", "activity_cleanup_service").Logger(),
	}
}

// Cleanup deletes records older than daysToKeep days. A non-positive
// daysToKeep falls back to the configured retention window.
func (s *ActivityCleanupService) Cleanup(ctx context.Context, daysToKeep int) (dto.CleanupResponse, error) {
	if daysToKeep <= 0 {
		daysToKeep = s.retentionDays
	}

	threshold := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	deleted, err := s.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		s.logger.Error().Err(err).Int("days_kept", daysToKeep).Msg("activity log cleanup failed")
		return dto.CleanupResponse{}, err
	}

	observability.CleanupDeleted().Add(float64(deleted))

	if s.fileLogger != nil {
		s.fileLogger.Activity("Activity log cleanup completed", map[string]any{
			"deleted_records": deleted,
			"days_kept":       daysToKeep,
		})
	}
	s.logger.Info().Int64("deleted_records", deleted).Int("days_kept", daysToKeep).Msg("activity log cleanup completed")

	return dto.CleanupResponse{DeletedRecords: deleted, DaysKept: daysToKeep}, nil
}

// RetentionDays exposes the configured default window.
func (s *ActivityCleanupService) RetentionDays() int {
	return s.retentionDays
}

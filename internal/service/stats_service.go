package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/repository"
)

// StatsService aggregates platform-wide counters for the admin overview.
type StatsService interface {
	Overview(ctx context.Context) (dto.StatsResponse, error)
}

type statsService struct {
	users    repository.UserRepository
	admins   repository.AdminRepository
	activity repository.ActivityLogRepository
	logger   zerolog.Logger
}

// NewStatsService constructs the stats aggregator.
func NewStatsService(users repository.UserRepository, admins repository.AdminRepository, activity repository.ActivityLogRepository, logger zerolog.Logger) StatsService {
	return &statsService{
		users:    users,
		admins:   admins,
		activity: activity,
		logger:   logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) Overview(ctx context.Context) (dto.StatsResponse, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return dto.StatsResponse{}, err
	}
	totalAdmins, err := s.admins.Count(ctx)
	if err != nil {
		return dto.StatsResponse{}, err
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := startOfWeek(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	countToday, err := s.activity.CountSince(ctx, todayStart)
	if err != nil {
		return dto.StatsResponse{}, err
	}
	countWeek, err := s.activity.CountSince(ctx, weekStart)
	if err != nil {
		return dto.StatsResponse{}, err
	}
	countMonth, err := s.activity.CountSince(ctx, monthStart)
	if err != nil {
		return dto.StatsResponse{}, err
	}

	return dto.StatsResponse{
		TotalUsers:  totalUsers,
		TotalAdmins: totalAdmins,
		ActivitySummary: dto.ActivitySummaryCounts{
			Today:     countToday,
			ThisWeek:  countWeek,
			ThisMonth: countMonth,
		},
	}, nil
}

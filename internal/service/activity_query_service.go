package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/observability"
	"github.com/oakbyte/pulse-api/internal/repository"
)

const dashboardCacheKey = "pulse:activity:dashboard:v1"

// DashboardWindow configures the read-side aggregation windows.
type DashboardWindow struct {
	RecentDays  int
	RecentLimit int
	WindowDays  int
}

// ActivityQueryService is the read-only reporting facade over the activity
// record store.
type ActivityQueryService interface {
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
	ForSubject(ctx context.Context, subjectType, subjectID string) ([]dto.ActivityResponse, error)
	ByActor(ctx context.Context, userID string) ([]dto.ActivityResponse, error)
	ByLogName(ctx context.Context, logName string) ([]dto.ActivityResponse, error)
	Dashboard(ctx context.Context) (dto.DashboardResponse, error)
}

type activityQueryService struct {
	repo     repository.ActivityLogRepository
	users    repository.UserRepository
	registry *SubjectRegistry
	cache    *redis.Client
	cacheTTL time.Duration
	window   DashboardWindow
	logger   zerolog.Logger
}

// NewActivityQueryService constructs the reporting facade. The cache client
// may be nil, in which case every dashboard read aggregates from the store.
func NewActivityQueryService(repo repository.ActivityLogRepository, users repository.UserRepository, registry *SubjectRegistry, cache *redis.Client, cacheTTL time.Duration, window DashboardWindow, logger zerolog.Logger) ActivityQueryService {
	if window.RecentDays <= 0 {
		window.RecentDays = 7
	}
	if window.RecentLimit <= 0 {
		window.RecentLimit = 20
	}
	if window.WindowDays <= 0 {
		window.WindowDays = 30
	}

	return &activityQueryService{
		repo:     repo,
		users:    users,
		registry: registry,
		cache:    cache,
		cacheTTL: cacheTTL,
		window:   window,
		logger:   logger.With().Str("component", "activity_query_service").Logger(),
	}
}

func (s *activityQueryService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:        req.Page,
		PageSize:    req.PageSize,
		Event:       req.Event,
		LogName:     req.LogName,
		SubjectType: req.SubjectType,
		BatchUUID:   req.BatchUUID,
	}
	if req.UserID != "" {
		userID := req.UserID
		filter.UserID = &userID
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.NewActivityResponse(record))
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pagination := dto.PaginationMeta{Page: page, PageSize: req.PageSize, TotalItems: total}
	if req.PageSize > 0 {
		pagination.TotalPages = int((total + int64(req.PageSize) - 1) / int64(req.PageSize))
	} else {
		pagination.TotalPages = 1
	}

	return dto.ActivityListResponse{Items: items, Pagination: pagination}, nil
}

func (s *activityQueryService) ForSubject(ctx context.Context, subjectType, subjectID string) ([]dto.ActivityResponse, error) {
	records, err := s.repo.ListBySubject(ctx, subjectType, subjectID)
	if err != nil {
		return nil, err
	}

	return s.withActors(ctx, records), nil
}

func (s *activityQueryService) ByActor(ctx context.Context, userID string) ([]dto.ActivityResponse, error) {
	records, err := s.repo.ListByActor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.withSubjects(ctx, records), nil
}

func (s *activityQueryService) ByLogName(ctx context.Context, logName string) ([]dto.ActivityResponse, error) {
	records, err := s.repo.ListByLogName(ctx, logName)
	if err != nil {
		return nil, err
	}

	items := s.withActors(ctx, records)
	for i := range items {
		s.attachSubject(ctx, &items[i])
	}
	return items, nil
}

func (s *activityQueryService) Dashboard(ctx context.Context) (dto.DashboardResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, dashboardCacheKey).Result(); err == nil && cached != "" {
			var response dto.DashboardResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.DashboardRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		}
	}

	start := time.Now()
	defer func() {
		observability.DashboardLatency().Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	response, err := s.aggregate(ctx, now)
	if err != nil {
		observability.DashboardRequests().WithLabelValues("error").Inc()
		return dto.DashboardResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to write dashboard cache")
			}
		}
	}

	observability.DashboardRequests().WithLabelValues("miss").Inc()

	return response, nil
}

func (s *activityQueryService) aggregate(ctx context.Context, now time.Time) (dto.DashboardResponse, error) {
	recent, err := s.repo.ListRecent(ctx, now.AddDate(0, 0, -s.window.RecentDays), s.window.RecentLimit)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := startOfWeek(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	countToday, err := s.repo.CountSince(ctx, todayStart)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	countWeek, err := s.repo.CountSince(ctx, weekStart)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	countMonth, err := s.repo.CountSince(ctx, monthStart)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	windowStart := now.AddDate(0, 0, -s.window.WindowDays)
	topEvents, err := s.repo.TopEvents(ctx, windowStart, 10)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	activeActors, err := s.repo.MostActiveActors(ctx, windowStart, 10)
	if err != nil {
		return dto.DashboardResponse{}, err
	}

	mostActive := make([]dto.MostActiveActor, 0, len(activeActors))
	for _, row := range activeActors {
		actor := dto.MostActiveActor{UserID: row.UserID, Count: row.Count}
		actor.Actor = s.resolveActor(ctx, row.UserID)
		mostActive = append(mostActive, actor)
	}

	return dto.DashboardResponse{
		RecentActivities: s.withActors(ctx, recent),
		Summary: dto.ActivitySummaryCounts{
			Today:     countToday,
			ThisWeek:  countWeek,
			ThisMonth: countMonth,
		},
		TopEvents:        topEvents,
		MostActiveActors: mostActive,
		WindowDays:       s.window.WindowDays,
		GeneratedAt:      now,
	}, nil
}

func (s *activityQueryService) withActors(ctx context.Context, records []models.ActivityLog) []dto.ActivityResponse {
	items := make([]dto.ActivityResponse, 0, len(records))
	for _, record := range records {
		item := dto.NewActivityResponse(record)
		if record.UserID != nil {
			item.Actor = s.resolveActor(ctx, *record.UserID)
		}
		items = append(items, item)
	}
	return items
}

func (s *activityQueryService) withSubjects(ctx context.Context, records []models.ActivityLog) []dto.ActivityResponse {
	items := make([]dto.ActivityResponse, 0, len(records))
	for _, record := range records {
		item := dto.NewActivityResponse(record)
		s.attachSubject(ctx, &item)
		items = append(items, item)
	}
	return items
}

func (s *activityQueryService) attachSubject(ctx context.Context, item *dto.ActivityResponse) {
	if item.SubjectType == "" || item.SubjectID == "" || s.registry == nil {
		return
	}

	summary, err := s.registry.Resolve(ctx, item.SubjectType, item.SubjectID)
	if err != nil {
		// Deleted subjects and unregistered tags stay unresolved on reads.
		if !errors.Is(err, ErrUnknownSubjectType) && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug().Err(err).Str("subject_type", item.SubjectType).Msg("subject resolution failed")
		}
		return
	}
	item.Subject = &summary
}

func (s *activityQueryService) resolveActor(ctx context.Context, userID string) *dto.ActorSummary {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil
	}
	return &dto.ActorSummary{ID: user.ID, Name: user.Name, Email: user.Email}
}

// startOfWeek returns midnight UTC of the Monday of the given week.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -(weekday - 1))
}

package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

var errSink = errors.New("sink failure")

// memoryActivityRepo is an in-memory ActivityLogRepository for service tests.
type memoryActivityRepo struct {
	records       []models.ActivityLog
	createErr     error
	lastThreshold time.Time
}

func (m *memoryActivityRepo) Create(ctx context.Context, record *models.ActivityLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	if record.ID == "" {
		record.ID = "mem-" + time.Now().Format("150405.000000000")
	}
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().Unix()
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	matched := make([]models.ActivityLog, 0, len(m.records))
	for _, record := range m.records {
		if filter.UserID != nil && (record.UserID == nil || *record.UserID != *filter.UserID) {
			continue
		}
		if filter.Event != "" && record.Event != filter.Event {
			continue
		}
		if filter.LogName != "" && record.LogName != filter.LogName {
			continue
		}
		if filter.SubjectType != "" && record.SubjectType != filter.SubjectType {
			continue
		}
		if filter.BatchUUID != "" && record.BatchUUID != filter.BatchUUID {
			continue
		}
		matched = append(matched, record)
	}
	return matched, int64(len(matched)), nil
}

func (m *memoryActivityRepo) ListBySubject(ctx context.Context, subjectType, subjectID string) ([]models.ActivityLog, error) {
	matched := make([]models.ActivityLog, 0)
	for _, record := range m.records {
		if record.SubjectType == subjectType && record.SubjectID == subjectID {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (m *memoryActivityRepo) ListByActor(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	matched := make([]models.ActivityLog, 0)
	for _, record := range m.records {
		if record.UserID != nil && *record.UserID == userID {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (m *memoryActivityRepo) ListByLogName(ctx context.Context, logName string) ([]models.ActivityLog, error) {
	matched := make([]models.ActivityLog, 0)
	for _, record := range m.records {
		if record.LogName == logName {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (m *memoryActivityRepo) ListByBatch(ctx context.Context, batchUUID string) ([]models.ActivityLog, error) {
	matched := make([]models.ActivityLog, 0)
	for _, record := range m.records {
		if record.BatchUUID == batchUUID {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

func (m *memoryActivityRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]models.ActivityLog, error) {
	matched := make([]models.ActivityLog, 0)
	for _, record := range m.records {
		if record.CreatedAt >= since.Unix() {
			matched = append(matched, record)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt > matched[j].CreatedAt })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *memoryActivityRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	for _, record := range m.records {
		if record.CreatedAt >= since.Unix() {
			count++
		}
	}
	return count, nil
}

func (m *memoryActivityRepo) CountBetween(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	for _, record := range m.records {
		if record.CreatedAt >= start.Unix() && record.CreatedAt < end.Unix() {
			count++
		}
	}
	return count, nil
}

func (m *memoryActivityRepo) TopEvents(ctx context.Context, since time.Time, limit int) ([]repository.EventCount, error) {
	counts := make(map[string]int64)
	for _, record := range m.records {
		if record.Event == "" || record.CreatedAt < since.Unix() {
			continue
		}
		counts[record.Event]++
	}

	rows := make([]repository.EventCount, 0, len(counts))
	for event, count := range counts {
		rows = append(rows, repository.EventCount{Event: event, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memoryActivityRepo) MostActiveActors(ctx context.Context, since time.Time, limit int) ([]repository.ActorCount, error) {
	counts := make(map[string]int64)
	for _, record := range m.records {
		if record.UserID == nil || record.CreatedAt < since.Unix() {
			continue
		}
		counts[*record.UserID]++
	}

	rows := make([]repository.ActorCount, 0, len(counts))
	for userID, count := range counts {
		rows = append(rows, repository.ActorCount{UserID: userID, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memoryActivityRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	m.lastThreshold = threshold
	kept := make([]models.ActivityLog, 0, len(m.records))
	var deleted int64
	for _, record := range m.records {
		if record.CreatedAt < threshold.Unix() {
			deleted++
			continue
		}
		kept = append(kept, record)
	}
	m.records = kept
	return deleted, nil
}

// memoryUserRepo is an in-memory UserRepository for service tests.
type memoryUserRepo struct {
	users   map[string]models.User
	deleted map[string]models.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		users:   make(map[string]models.User),
		deleted: make(map[string]models.User),
	}
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdatedAt = time.Now().UTC()
	m.users[user.ID] = *user
	return nil
}

func (m *memoryUserRepo) Delete(ctx context.Context, id string) error {
	user, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	m.deleted[id] = user
	return nil
}

func (m *memoryUserRepo) Restore(ctx context.Context, id string) error {
	user, ok := m.deleted[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.deleted, id)
	m.users[id] = user
	return nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (m *memoryUserRepo) FindDeletedByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.deleted[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (m *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			match := user
			return &match, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) List(ctx context.Context, filter repository.UserFilter) ([]models.User, int64, error) {
	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, int64(len(users)), nil
}

func (m *memoryUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

// testSubject is a minimal Auditable used across the service tests.
type testSubject struct {
	kind  string
	id    string
	attrs map[string]interface{}
}

func (s testSubject) SubjectType() string { return s.kind }
func (s testSubject) SubjectID() string   { return s.id }
func (s testSubject) AuditAttributes() map[string]interface{} {
	return s.attrs
}

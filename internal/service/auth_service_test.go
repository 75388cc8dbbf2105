package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/logging"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/repository"
)

func newTestAuthService(users *memoryUserRepo, repo *memoryActivityRepo) AuthService {
	return newTestAuthServiceWithFileLogger(users, repo, nil)
}

func newTestAuthServiceWithFileLogger(users *memoryUserRepo, repo *memoryActivityRepo, fileLogger *logging.CentralizedLogger) AuthService {
	activity := newTestActivityLogger(repo)
	observer := NewActivityObserver(activity, true, testLogger())
	return NewAuthService(users, activity, observer, fileLogger, "test-secret", time.Hour, 4, testLogger())
}

func TestRegisterCreatesAccountAndActivity(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestAuthService(users, activityRepo)

	response, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "correct-horse",
	}, RequestMeta{IPAddress: "203.0.113.1"})
	require.NoError(t, err)

	require.NotEmpty(t, response.AccessToken)
	require.Equal(t, "ada@example.com", response.User.Email)
	require.Equal(t, models.RoleUser, response.User.Role)

	stored, err := users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", stored.Password, "password must be hashed")

	require.Len(t, activityRepo.records, 1)
	created := activityRepo.records[0]
	require.Equal(t, string(models.EventCreate), created.Event)
	require.Equal(t, "User", created.SubjectType)
	require.NotContains(t, created.NewValues, "password")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newMemoryUserRepo()
	svc := newTestAuthService(users, &memoryActivityRepo{})

	req := dto.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"}
	_, err := svc.Register(context.Background(), req, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req, RequestMeta{})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRecordsActivityAndLastLogin(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestAuthService(users, activityRepo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{})
	require.NoError(t, err)

	response, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{IPAddress: "203.0.113.2"})
	require.NoError(t, err)
	require.NotEmpty(t, response.AccessToken)
	require.True(t, response.ExpiresAt.After(time.Now()))

	stored, err := users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)

	logins, err := activityRepo.ListByLogName(context.Background(), "auth")
	require.NoError(t, err)
	require.Len(t, logins, 1)
	require.Equal(t, string(models.EventLogin), logins[0].Event)
	require.Equal(t, stored.ID, *logins[0].UserID)
	require.Equal(t, "203.0.113.2", logins[0].IPAddress)
}

func TestLoginFailureRecordsFailedAttempt(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestAuthService(users, activityRepo)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "ada@example.com", Password: "wrong",
	}, RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "nobody@example.com", Password: "wrong",
	}, RequestMeta{})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	failures, total, err := activityRepo.List(context.Background(), repository.ActivityLogFilter{
		Event: string(models.EventFailedLogin),
	})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, failures, 2)
	require.Equal(t, "wrong_password", failures[0].Properties["reason"])
	require.Equal(t, "unknown_email", failures[1].Properties["reason"])
	for _, failure := range failures {
		require.Nil(t, failure.UserID)
		require.NotEmpty(t, failure.Properties["email"])
	}
}

func TestLoginFailureWritesSecurityChannel(t *testing.T) {
	var sink bytes.Buffer
	fileLogger := logging.NewCentralizedLogger(&sink, "app")

	users := newMemoryUserRepo()
	svc := newTestAuthServiceWithFileLogger(users, &memoryActivityRepo{}, fileLogger)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{})
	require.NoError(t, err)
	sink.Reset()

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "ada@example.com", Password: "wrong",
	}, RequestMeta{IPAddress: "203.0.113.9", RequestID: "req-77"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	out := sink.String()
	require.Contains(t, out, `"channel":"security"`)
	require.Contains(t, out, "Failed login attempt")
	require.Contains(t, out, "ada@example.com")
	require.Contains(t, out, "wrong_password")
	require.Contains(t, out, "203.0.113.9")
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	users := newMemoryUserRepo()
	svc := newTestAuthService(users, &memoryActivityRepo{})

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{})
	require.NoError(t, err)

	stored, err := users.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	stored.Status = "suspended"
	require.NoError(t, users.Update(context.Background(), stored))

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Email: "ada@example.com", Password: "correct-horse",
	}, RequestMeta{})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogoutRecordsActivity(t *testing.T) {
	activityRepo := &memoryActivityRepo{}
	svc := newTestAuthService(newMemoryUserRepo(), activityRepo)

	require.NoError(t, svc.Logout(context.Background(), "user-1", RequestMeta{}))

	require.Len(t, activityRepo.records, 1)
	require.Equal(t, string(models.EventLogout), activityRepo.records[0].Event)
	require.Equal(t, "user-1", *activityRepo.records[0].UserID)
}

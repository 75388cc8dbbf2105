package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/models"
)

func newTestUserService(users *memoryUserRepo, activityRepo *memoryActivityRepo) UserService {
	observer := NewActivityObserver(newTestActivityLogger(activityRepo), true, testLogger())
	return NewUserService(users, observer, testLogger())
}

func seedUser(t *testing.T, users *memoryUserRepo, id string) models.User {
	t.Helper()
	user := models.User{ID: id, Name: "User " + id, Email: id + "@example.com", Password: "x", Role: models.RoleUser, Status: "active"}
	require.NoError(t, users.Create(context.Background(), &user))
	return user
}

func TestUpdateProfileRecordsDiff(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestUserService(users, activityRepo)
	seedUser(t, users, "u1")

	name := "Renamed"
	updated, err := svc.UpdateProfile(context.Background(), "u1", "u1", dto.UserUpdateRequest{Name: &name}, RequestMeta{IPAddress: "203.0.113.5"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)

	require.Len(t, activityRepo.records, 1)
	record := activityRepo.records[0]
	require.Equal(t, string(models.EventUpdate), record.Event)
	require.Equal(t, "User", record.SubjectType)
	require.Equal(t, "u1", record.SubjectID)
	require.Equal(t, "u1", *record.UserID)
	require.Equal(t, "203.0.113.5", record.IPAddress)
	require.Equal(t, map[string]interface{}{"name": "User u1"}, map[string]interface{}(record.OldValues))
	require.Equal(t, map[string]interface{}{"name": "Renamed"}, map[string]interface{}(record.NewValues))
}

func TestUpdateProfileWithoutChangesRecordsNothing(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestUserService(users, activityRepo)
	user := seedUser(t, users, "u1")

	_, err := svc.UpdateProfile(context.Background(), "u1", "u1", dto.UserUpdateRequest{Name: &user.Name}, RequestMeta{})
	require.NoError(t, err)
	require.Empty(t, activityRepo.records)
}

func TestUpdateProfileSucceedsWhenActivityWriteFails(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{createErr: errSink}
	svc := newTestUserService(users, activityRepo)
	seedUser(t, users, "u1")

	name := "Renamed"
	updated, err := svc.UpdateProfile(context.Background(), "u1", "u1", dto.UserUpdateRequest{Name: &name}, RequestMeta{})
	require.NoError(t, err, "a failing activity write must not fail the profile update")
	require.Equal(t, "Renamed", updated.Name)

	stored, err := users.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", stored.Name)
}

func TestAdminUpdateAttributesActorSeparately(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestUserService(users, activityRepo)
	seedUser(t, users, "u1")

	status := "suspended"
	_, err := svc.AdminUpdate(context.Background(), "admin-1", "u1", dto.AdminUserUpdateRequest{Status: &status}, RequestMeta{})
	require.NoError(t, err)

	require.Len(t, activityRepo.records, 1)
	record := activityRepo.records[0]
	require.Equal(t, "admin-1", *record.UserID, "the acting admin, not the subject, is the causer")
	require.Equal(t, "u1", record.SubjectID)
}

func TestDeleteAndRestoreLifecycle(t *testing.T) {
	users := newMemoryUserRepo()
	activityRepo := &memoryActivityRepo{}
	svc := newTestUserService(users, activityRepo)
	seedUser(t, users, "u1")

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "u1", RequestMeta{}))

	_, err := users.FindByID(context.Background(), "u1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	restored, err := svc.Restore(context.Background(), "admin-1", "u1", RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "u1", restored.ID)

	found, err := users.FindByID(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", found.ID)

	require.Len(t, activityRepo.records, 2)
	require.Equal(t, string(models.EventDelete), activityRepo.records[0].Event)
	require.Equal(t, string(models.EventRestore), activityRepo.records[1].Event)
}

func TestRestoreWithoutDeletedUserFails(t *testing.T) {
	users := newMemoryUserRepo()
	svc := newTestUserService(users, &memoryActivityRepo{})
	seedUser(t, users, "u1")

	_, err := svc.Restore(context.Background(), "admin-1", "u1", RequestMeta{})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

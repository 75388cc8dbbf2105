package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oakbyte/pulse-api/internal/models"
)

func newTestActivityLogger(repo *memoryActivityRepo) *ActivityLogger {
	return NewActivityLogger(repo, nil, nil, testLogger())
}

func TestEntryLogRequiresDescription(t *testing.T) {
	activity := newTestActivityLogger(&memoryActivityRepo{})

	_, err := activity.NewEntry().Log(context.Background(), "   ")
	require.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestEntryLogRequiresCompleteSubject(t *testing.T) {
	activity := newTestActivityLogger(&memoryActivityRepo{})

	_, err := activity.NewEntry().
		PerformedOn(testSubject{kind: "User", id: ""}).
		Log(context.Background(), "incomplete subject")
	require.ErrorIs(t, err, ErrSubjectIncomplete)
}

func TestEntryLogPersistsAllFields(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	meta := RequestMeta{
		IPAddress: "203.0.113.9",
		UserAgent: "pulse-test/1.0",
		SessionID: "sess-1",
		RequestID: "req-1",
	}

	record, err := activity.NewEntry().
		WithName("billing").
		CausedBy("actor-1").
		PerformedOn(testSubject{kind: "User", id: "user-1"}).
		WithEvent("export").
		WithProperties(map[string]interface{}{"format": "csv"}).
		WithProperty("rows", 42).
		WithRequest(meta).
		Log(context.Background(), "Invoice exported")
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	require.Equal(t, "billing", record.LogName)
	require.Equal(t, "Invoice exported", record.Description)
	require.Equal(t, "export", record.Event)
	require.Equal(t, "User", record.SubjectType)
	require.Equal(t, "user-1", record.SubjectID)
	require.NotNil(t, record.UserID)
	require.Equal(t, "actor-1", *record.UserID)
	require.Equal(t, "csv", record.Properties["format"])
	require.Equal(t, 42, record.Properties["rows"])
	require.Equal(t, "203.0.113.9", record.IPAddress)
	require.Equal(t, "pulse-test/1.0", record.UserAgent)
	require.Equal(t, "sess-1", record.SessionID)
	require.Equal(t, "req-1", record.RequestID)
	require.NotEmpty(t, record.ID)
}

func TestEntryLogWithoutActorIsSystemAction(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	record, err := activity.NewEntry().Log(context.Background(), "nightly job finished")
	require.NoError(t, err)
	require.Nil(t, record.UserID)
}

func TestCreatedCapturesFullAttributeSet(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	subject := testSubject{kind: "User", id: "user-1", attrs: map[string]interface{}{
		"name":  "Ada",
		"email": "ada@example.com",
	}}

	record, err := activity.NewEntry().Created(context.Background(), subject, "")
	require.NoError(t, err)
	require.Equal(t, string(models.EventCreate), record.Event)
	require.Equal(t, "User created", record.Description)
	require.Empty(t, record.OldValues)
	require.Equal(t, "Ada", record.NewValues["name"])
	require.Equal(t, "ada@example.com", record.NewValues["email"])
}

func TestUpdatedStoresOnlyChangedAttributes(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	before := map[string]interface{}{
		"name":   "Ada",
		"email":  "ada@example.com",
		"status": "active",
	}
	subject := testSubject{kind: "User", id: "user-1", attrs: map[string]interface{}{
		"name":   "Ada Lovelace",
		"email":  "ada@example.com",
		"status": "active",
	}}

	record, err := activity.NewEntry().Updated(context.Background(), subject, before, "")
	require.NoError(t, err)
	require.Equal(t, string(models.EventUpdate), record.Event)

	require.Len(t, record.OldValues, 1)
	require.Len(t, record.NewValues, 1)
	require.Equal(t, "Ada", record.OldValues["name"])
	require.Equal(t, "Ada Lovelace", record.NewValues["name"])
	require.NotContains(t, record.OldValues, "email")
	require.NotContains(t, record.NewValues, "status")
}

func TestDiffAttributesNewKeyAppearsOnlyInNewValues(t *testing.T) {
	before := map[string]interface{}{"name": "Ada"}
	after := map[string]interface{}{"name": "Ada", "nickname": "countess"}

	oldValues, newValues := DiffAttributes(before, after)
	require.Nil(t, oldValues)
	require.Equal(t, map[string]interface{}{"nickname": "countess"}, newValues)
}

func TestDiffAttributesNoChangesReturnsNil(t *testing.T) {
	attrs := map[string]interface{}{"name": "Ada", "status": "active"}

	oldValues, newValues := DiffAttributes(attrs, map[string]interface{}{"name": "Ada", "status": "active"})
	require.Nil(t, oldValues)
	require.Nil(t, newValues)
}

func TestDeletedPreservesLastAttributeSet(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	subject := testSubject{kind: "User", id: "user-1", attrs: map[string]interface{}{
		"name": "Ada",
	}}

	record, err := activity.NewEntry().Deleted(context.Background(), subject, "")
	require.NoError(t, err)
	require.Equal(t, string(models.EventDelete), record.Event)
	require.Equal(t, "Ada", record.OldValues["name"])
	require.Empty(t, record.NewValues)
}

func TestRestoredCapturesReturningAttributeSet(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	subject := testSubject{kind: "User", id: "user-1", attrs: map[string]interface{}{
		"name":   "Ada",
		"status": "active",
	}}

	record, err := activity.NewEntry().Restored(context.Background(), subject, "")
	require.NoError(t, err)
	require.Equal(t, string(models.EventRestore), record.Event)
	require.Equal(t, "User restored", record.Description)
	require.Equal(t, "Ada", record.NewValues["name"])
	require.Equal(t, "active", record.NewValues["status"])
	require.Empty(t, record.OldValues)
}

func TestFailedLoginRecordShape(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	record, err := activity.NewEntry().
		WithRequest(RequestMeta{IPAddress: "198.51.100.4"}).
		FailedLogin(context.Background(), "ada@example.com", map[string]interface{}{"reason": "wrong_password"})
	require.NoError(t, err)

	require.Equal(t, "auth", record.LogName)
	require.Equal(t, string(models.EventFailedLogin), record.Event)
	require.Equal(t, "Failed login attempt", record.Description)
	require.Nil(t, record.UserID)
	require.Empty(t, record.SubjectType)
	require.Equal(t, "ada@example.com", record.Properties["email"])
	require.Equal(t, "wrong_password", record.Properties["reason"])
	require.Equal(t, "198.51.100.4", record.IPAddress)
}

func TestBatchEntriesShareOneUUID(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	batchUUID := activity.Batch(func(entry func() *Entry) {
		for i := 0; i < 3; i++ {
			_, err := entry().Log(context.Background(), "batched step")
			require.NoError(t, err)
		}
	})
	require.NotEmpty(t, batchUUID)

	require.Len(t, repo.records, 3)
	for _, record := range repo.records {
		require.Equal(t, batchUUID, record.BatchUUID)
	}
}

func TestBatchUUIDsAreUniqueAcrossBatches(t *testing.T) {
	activity := newTestActivityLogger(&memoryActivityRepo{})

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		batchUUID := activity.Batch(func(entry func() *Entry) {})
		_, duplicate := seen[batchUUID]
		require.False(t, duplicate, "batch uuid reissued")
		seen[batchUUID] = struct{}{}
	}
}

func TestEntryStateResetsAfterLog(t *testing.T) {
	repo := &memoryActivityRepo{}
	activity := newTestActivityLogger(repo)

	entry := activity.NewEntry()
	_, err := entry.
		WithName("billing").
		CausedBy("actor-1").
		WithEvent("export").
		WithProperty("format", "csv").
		Log(context.Background(), "first")
	require.NoError(t, err)

	second, err := entry.Log(context.Background(), "second")
	require.NoError(t, err)

	require.Empty(t, second.LogName)
	require.Nil(t, second.UserID)
	require.Empty(t, second.Event)
	require.Empty(t, second.Properties)
}

func TestLogPropagatesPersistenceFailure(t *testing.T) {
	repo := &memoryActivityRepo{createErr: errSink}
	activity := newTestActivityLogger(repo)

	_, err := activity.NewEntry().Log(context.Background(), "doomed")
	require.ErrorIs(t, err, errSink)
	require.Empty(t, repo.records)
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/sakif/signal-registry/internal/apperror"
	"github.com/sakif/signal-registry/internal/auth"
	"github.com/sakif/signal-registry/internal/model"
	"github.com/sakif/signal-registry/internal/objectstore"
)

// =========================================================================
// MOCKS
// =========================================================================
//
// mockSignalRepo implements repository.SignalRepository in memory.
// fakeObjects implements objectstore.Store in memory and records deletes.

type pairKey struct {
	userID   string
	signalID int
}

type mockSignalRepo struct {
	signals map[pairKey]model.Signal

	// insertErr, when set, is returned by Insert instead of storing.
	insertErr error
	// countErr, when set, is returned by CountReferences.
	countErr error
}

func newMockRepo() *mockSignalRepo {
	return &mockSignalRepo{signals: make(map[pairKey]model.Signal)}
}

func (m *mockSignalRepo) seed(userID string, signalID int, key string) {
	m.signals[pairKey{userID, signalID}] = model.Signal{
		UserID: userID, SignalID: signalID, Description: "seeded", ObjectKey: key,
	}
}

func (m *mockSignalRepo) ListSignalIDs(_ context.Context, userID string) ([]int, error) {
	var ids []int
	for k := range m.signals {
		if userID == "" || k.userID == userID {
			ids = append(ids, k.signalID)
		}
	}
	return ids, nil
}

func (m *mockSignalRepo) Exists(_ context.Context, userID string, signalID int) (bool, error) {
	_, ok := m.signals[pairKey{userID, signalID}]
	return ok, nil
}

func (m *mockSignalRepo) Insert(_ context.Context, s *model.Signal) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	k := pairKey{s.UserID, s.SignalID}
	if _, ok := m.signals[k]; ok {
		return apperror.Conflict("signal", fmt.Sprint(k))
	}
	m.signals[k] = *s
	return nil
}

func (m *mockSignalRepo) Update(_ context.Context, userID string, signalID int, description string, objectKey *string) error {
	k := pairKey{userID, signalID}
	s, ok := m.signals[k]
	if !ok {
		return apperror.NotFound("signal", fmt.Sprint(k))
	}
	s.Description = description
	if objectKey != nil {
		s.ObjectKey = *objectKey
	}
	m.signals[k] = s
	return nil
}

func (m *mockSignalRepo) Get(_ context.Context, userID string, signalID int) (*model.Signal, error) {
	s, ok := m.signals[pairKey{userID, signalID}]
	if !ok {
		return nil, apperror.NotFound("signal", userID)
	}
	return &s, nil
}

func (m *mockSignalRepo) GetObjectKey(ctx context.Context, userID string, signalID int) (string, error) {
	s, err := m.Get(ctx, userID, signalID)
	if err != nil {
		return "", err
	}
	return s.ObjectKey, nil
}

func (m *mockSignalRepo) Delete(_ context.Context, userID string, signalID int) error {
	k := pairKey{userID, signalID}
	if _, ok := m.signals[k]; !ok {
		return apperror.NotFound("signal", fmt.Sprint(k))
	}
	delete(m.signals, k)
	return nil
}

func (m *mockSignalRepo) CountReferences(_ context.Context, objectKey string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	n := 0
	for _, s := range m.signals {
		if s.ObjectKey == objectKey {
			n++
		}
	}
	return n, nil
}

func (m *mockSignalRepo) Ping(context.Context) error { return nil }

type fakeObjects struct {
	objects   map[string]string
	headErr   error
	getErr    error
	deleteErr error
	deleted   []string
	gets      int
}

func newFakeObjects(keys ...string) *fakeObjects {
	f := &fakeObjects{objects: make(map[string]string)}
	for _, k := range keys {
		f.objects[k] = "date,value\n2024-01-01,1\n"
	}
	return f
}

func (f *fakeObjects) Head(_ context.Context, key string) error {
	if f.headErr != nil {
		return f.headErr
	}
	if _, ok := f.objects[key]; !ok {
		return fmt.Errorf("NoSuchKey: %s: %w", key, objectstore.ErrNotFound)
	}
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("NoSuchKey: %s: %w", key, objectstore.ErrNotFound)
	}
	return []byte(body), nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func newTestService(t *testing.T, objects *fakeObjects) (*SignalService, *mockSignalRepo) {
	t.Helper()
	repo := newMockRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewSignalService(repo, objects, ScopeGlobal, logger), repo
}

func strPtr(s string) *string { return &s }

// assertAppError checks the sentinel and the exact client-facing message.
func assertAppError(t *testing.T, err error, sentinel error, message string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", message)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel %v", err, sentinel)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *apperror.AppError", err)
	}
	if appErr.Message != message {
		t.Errorf("message = %q, want %q", appErr.Message, message)
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	objects := newFakeObjects("a.csv")
	svc, repo := newTestService(t, objects)

	res, err := svc.Create(context.Background(), CreateInput{
		UserID: "7", Description: "x", ObjectKey: strPtr("a.csv"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if res.Message != MsgCreatePass {
		t.Errorf("Message = %q, want %q", res.Message, MsgCreatePass)
	}
	if res.Signal.SignalID != 1 {
		t.Errorf("SignalID = %d, want 1", res.Signal.SignalID)
	}
	if _, ok := repo.signals[pairKey{"7", 1}]; !ok {
		t.Error("signal (7, 1) was not stored")
	}
	if objects.gets != 0 {
		t.Errorf("object downloaded %d times, want existence check only", objects.gets)
	}
}

func TestEventsLogSubject(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	svc := NewSignalService(newMockRepo(), newFakeObjects("a.csv"), ScopeGlobal, logger)
	ctx := auth.WithUserID(context.Background(), "alice")

	if _, err := svc.Create(ctx, CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Modify(ctx, ModifyInput{UserID: "7", SignalID: "1", Description: "y"}); err != nil {
		t.Fatalf("Modify() error = %v", err)
	}
	if _, err := svc.Delete(ctx, DeleteInput{UserID: "7", SignalID: "1"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	events := map[string]string{}
	dec := json.NewDecoder(&logs)
	for dec.More() {
		var entry map[string]any
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decoding log line: %v", err)
		}
		if subject, ok := entry["subject"].(string); ok {
			events[entry["msg"].(string)] = subject
		}
	}
	for _, msg := range []string{"signal created", "signal modified", "signal deleted"} {
		if events[msg] != "alice" {
			t.Errorf("%q subject = %q, want %q", msg, events[msg], "alice")
		}
	}
}

func TestCreate_AllocatesSmallestFreeID(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects("a.csv"))
	repo.seed("7", 1, "a.csv")
	repo.seed("8", 3, "a.csv")

	res, err := svc.Create(context.Background(), CreateInput{UserID: "9", ObjectKey: strPtr("a.csv")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// Global scope: IDs 1 and 3 are taken system-wide, so user 9 gets 2.
	if res.Signal.SignalID != 2 {
		t.Errorf("SignalID = %d, want 2", res.Signal.SignalID)
	}
}

func TestCreate_UserScopeAllocation(t *testing.T) {
	repo := newMockRepo()
	repo.seed("8", 1, "a.csv")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewSignalService(repo, newFakeObjects("a.csv"), ScopeUser, logger)

	res, err := svc.Create(context.Background(), CreateInput{UserID: "9", ObjectKey: strPtr("a.csv")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// User scope ignores other users' IDs.
	if res.Signal.SignalID != 1 {
		t.Errorf("SignalID = %d, want 1", res.Signal.SignalID)
	}
}

func TestCreate_MissingObjectKey(t *testing.T) {
	svc, _ := newTestService(t, newFakeObjects())

	_, err := svc.Create(context.Background(), CreateInput{UserID: "7"})
	assertAppError(t, err, apperror.ErrValidation, MsgCreateLackObjectKey)
	if apperror.KindOf(err) != apperror.KindMissingField {
		t.Errorf("Kind = %q, want missing_field", apperror.KindOf(err))
	}
}

func TestCreate_ObjectKeyNotCSV(t *testing.T) {
	svc, _ := newTestService(t, newFakeObjects())

	for _, key := range []string{"", "a.txt", "csv"} {
		_, err := svc.Create(context.Background(), CreateInput{UserID: "7", ObjectKey: strPtr(key)})
		assertAppError(t, err, apperror.ErrValidation, MsgCreateBadObjectKey)
		if apperror.KindOf(err) != apperror.KindInvalidFormat {
			t.Errorf("key %q: Kind = %q, want invalid_format", key, apperror.KindOf(err))
		}
	}
}

func TestCreate_EmptyUserID(t *testing.T) {
	svc, _ := newTestService(t, newFakeObjects("a.csv"))

	_, err := svc.Create(context.Background(), CreateInput{UserID: "", ObjectKey: strPtr("a.csv")})
	assertAppError(t, err, apperror.ErrValidation, MsgCreateLackUserID)
}

func TestCreate_ObjectMissing(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects())

	_, err := svc.Create(context.Background(), CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")})
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		t.Errorf("error = %v, want the store error kept in the chain", err)
	}
	want := `Create: Fail! S3 file "a.csv" is not exist: NoSuchKey: a.csv: object not found`
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
	if len(repo.signals) != 0 {
		t.Error("signal stored despite missing object")
	}
}

func TestCreate_ObjectStoreDown(t *testing.T) {
	objects := newFakeObjects("a.csv")
	objects.headErr = errors.New("connection refused")
	svc, _ := newTestService(t, objects)

	_, err := svc.Create(context.Background(), CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")})
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("message %q should embed the store error", err.Error())
	}
}

func TestCreate_InsertRace(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects("a.csv"))
	// Simulate another request inserting the same pair after our Exists check.
	repo.insertErr = apperror.Conflict("signal", "7/1")

	_, err := svc.Create(context.Background(), CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")})
	assertAppError(t, err, apperror.ErrConflict, MsgCreateDuplicate)
}

func TestCreate_InsertFailure(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects("a.csv"))
	repo.insertErr = errors.New("disk full")

	_, err := svc.Create(context.Background(), CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")})
	if err == nil {
		t.Fatal("Create() should fail when the insert fails")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("infrastructure failure should not be an AppError, got %v", appErr)
	}
}

// =========================================================================
// MODIFY TESTS
// =========================================================================

func TestModify_DescriptionOnlyKeepsKey(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects("a.csv"))
	repo.seed("7", 1, "a.csv")

	for _, key := range []*string{nil, strPtr("")} {
		res, err := svc.Modify(context.Background(), ModifyInput{
			UserID: "7", SignalID: "1", Description: "renamed", ObjectKey: key,
		})
		if err != nil {
			t.Fatalf("Modify() error = %v", err)
		}
		if res.Message != MsgModifyPass {
			t.Errorf("Message = %q, want %q", res.Message, MsgModifyPass)
		}
		if res.Signal.ObjectKey != "a.csv" {
			t.Errorf("ObjectKey = %q, want unchanged %q", res.Signal.ObjectKey, "a.csv")
		}
		if res.Signal.Description != "renamed" {
			t.Errorf("Description = %q, want %q", res.Signal.Description, "renamed")
		}
	}
}

func TestModify_DescriptionAndKey(t *testing.T) {
	objects := newFakeObjects("a.csv", "b.csv")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")

	res, err := svc.Modify(context.Background(), ModifyInput{
		UserID: "7", SignalID: "1", Description: "moved", ObjectKey: strPtr("b.csv"),
	})
	if err != nil {
		t.Fatalf("Modify() error = %v", err)
	}

	stored := repo.signals[pairKey{"7", 1}]
	if stored.ObjectKey != "b.csv" || stored.Description != "moved" {
		t.Errorf("stored = %+v, want description and key updated together", stored)
	}
	if res.Signal.ObjectKey != "b.csv" {
		t.Errorf("result ObjectKey = %q, want %q", res.Signal.ObjectKey, "b.csv")
	}
	if objects.gets != 0 {
		t.Errorf("object downloaded %d times, want existence check only", objects.gets)
	}
}

func TestModify_Failures(t *testing.T) {
	tests := []struct {
		name     string
		in       ModifyInput
		sentinel error
		message  string
	}{
		{
			name:     "empty user id",
			in:       ModifyInput{SignalID: "1"},
			sentinel: apperror.ErrValidation,
			message:  MsgModifyLackIDs,
		},
		{
			name:     "empty signal id",
			in:       ModifyInput{UserID: "7"},
			sentinel: apperror.ErrValidation,
			message:  MsgModifyLackIDs,
		},
		{
			name:     "non csv key",
			in:       ModifyInput{UserID: "7", SignalID: "1", ObjectKey: strPtr("a.txt")},
			sentinel: apperror.ErrValidation,
			message:  MsgCreateBadObjectKey,
		},
		{
			name:     "non digit id",
			in:       ModifyInput{UserID: "7", SignalID: "abc"},
			sentinel: apperror.ErrValidation,
			message:  MsgModifyInvalid,
		},
		{
			name:     "negative id",
			in:       ModifyInput{UserID: "7", SignalID: "-1"},
			sentinel: apperror.ErrValidation,
			message:  MsgModifyInvalid,
		},
		{
			name:     "digits beyond int range",
			in:       ModifyInput{UserID: "7", SignalID: "99999999999999999999999"},
			sentinel: apperror.ErrNotFound,
			message:  MsgModifyNotExist,
		},
		{
			name:     "absent record",
			in:       ModifyInput{UserID: "7", SignalID: "2"},
			sentinel: apperror.ErrNotFound,
			message:  MsgModifyNotExist,
		},
		{
			name:     "new object missing",
			in:       ModifyInput{UserID: "7", SignalID: "1", ObjectKey: strPtr("gone.csv")},
			sentinel: apperror.ErrUpstream,
			message:  `Create: Fail! S3 file "gone.csv" is not exist: NoSuchKey: gone.csv: object not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, newFakeObjects("a.csv"))
			repo.seed("7", 1, "a.csv")

			_, err := svc.Modify(context.Background(), tt.in)
			assertAppError(t, err, tt.sentinel, tt.message)

			if stored := repo.signals[pairKey{"7", 1}]; stored.ObjectKey != "a.csv" || stored.Description != "seeded" {
				t.Errorf("stored record changed on failure: %+v", stored)
			}
		})
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestRead_Success(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["a.csv"] = "date,value\n2024-01-01,1\n"
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")

	res, err := svc.Read(context.Background(), ReadInput{UserID: "7", SignalID: "1"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Message != MsgReadPass {
		t.Errorf("Message = %q, want %q", res.Message, MsgReadPass)
	}
	if res.CSV != "date,value\n2024-01-01,1\n" {
		t.Errorf("CSV = %q", res.CSV)
	}
	if res.Columns != 2 {
		t.Errorf("Columns = %d, want 2", res.Columns)
	}
}

func TestRead_TooFewColumnsStillReturnsPayload(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["one.csv"] = "value\n1\n2\n"
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "one.csv")

	res, err := svc.Read(context.Background(), ReadInput{UserID: "7", SignalID: "1"})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Message != MsgReadFewColumns {
		t.Errorf("Message = %q, want %q", res.Message, MsgReadFewColumns)
	}
	if res.CSV != "value\n1\n2\n" {
		t.Errorf("CSV = %q, want the raw text", res.CSV)
	}
}

func TestRead_Failures(t *testing.T) {
	tests := []struct {
		name     string
		in       ReadInput
		sentinel error
		message  string
	}{
		{"empty user id", ReadInput{SignalID: "1"}, apperror.ErrValidation, MsgReadLackIDs},
		{"empty signal id", ReadInput{UserID: "7"}, apperror.ErrValidation, MsgReadLackIDs},
		{"non digit id", ReadInput{UserID: "7", SignalID: "1a"}, apperror.ErrValidation, MsgInvalidID},
		{"absent record", ReadInput{UserID: "7", SignalID: "5"}, apperror.ErrNotFound, MsgReadNotExist},
		{"other user's id", ReadInput{UserID: "8", SignalID: "1"}, apperror.ErrNotFound, MsgReadNotExist},
		{"digits beyond int range", ReadInput{UserID: "7", SignalID: "99999999999999999999999"}, apperror.ErrNotFound, MsgReadNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t, newFakeObjects("a.csv"))
			repo.seed("7", 1, "a.csv")

			res, err := svc.Read(context.Background(), tt.in)
			if res != nil {
				t.Errorf("Read() returned a payload on failure: %+v", res)
			}
			assertAppError(t, err, tt.sentinel, tt.message)
		})
	}
}

func TestRead_ObjectGone(t *testing.T) {
	svc, repo := newTestService(t, newFakeObjects())
	repo.seed("7", 1, "a.csv")

	_, err := svc.Read(context.Background(), ReadInput{UserID: "7", SignalID: "1"})
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
}

func TestRead_ObjectStoreDown(t *testing.T) {
	objects := newFakeObjects("a.csv")
	objects.getErr = errors.New("connection refused")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")

	_, err := svc.Read(context.Background(), ReadInput{UserID: "7", SignalID: "1"})
	assertAppError(t, err, apperror.ErrUpstream,
		`Read: Fail! S3 file "a.csv" is not exist: connection refused`)
}

func TestRead_InvalidUTF8(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["bin.csv"] = "a,b\n\xff\xfe\n"
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "bin.csv")

	_, err := svc.Read(context.Background(), ReadInput{UserID: "7", SignalID: "1"})
	assertAppError(t, err, apperror.ErrUpstream, `Read: Fail! S3 file "bin.csv" is not valid UTF-8`)
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_RemovesRecordAndOrphanedObject(t *testing.T) {
	objects := newFakeObjects("a.csv")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")

	res, err := svc.Delete(context.Background(), DeleteInput{UserID: "7", SignalID: "1", Description: "ignored"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.Message != MsgDeletePass {
		t.Errorf("Message = %q, want %q", res.Message, MsgDeletePass)
	}
	if !res.ObjectRemoved {
		t.Error("ObjectRemoved = false, want true")
	}
	if len(repo.signals) != 0 {
		t.Error("record still stored after Delete()")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "a.csv" {
		t.Errorf("deleted objects = %v, want [a.csv]", objects.deleted)
	}
}

func TestDelete_SharedObjectKept(t *testing.T) {
	objects := newFakeObjects("shared.csv")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "shared.csv")
	repo.seed("8", 1, "shared.csv")

	res, err := svc.Delete(context.Background(), DeleteInput{UserID: "7", SignalID: "1"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.ObjectRemoved {
		t.Error("ObjectRemoved = true while another signal references the object")
	}
	if len(objects.deleted) != 0 {
		t.Errorf("deleted objects = %v, want none", objects.deleted)
	}
	if _, ok := repo.signals[pairKey{"8", 1}]; !ok {
		t.Error("the other user's signal was removed")
	}
}

func TestDelete_ObjectCleanupFailureNotReported(t *testing.T) {
	objects := newFakeObjects("a.csv")
	objects.deleteErr = errors.New("access denied")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")

	res, err := svc.Delete(context.Background(), DeleteInput{UserID: "7", SignalID: "1"})
	if err != nil {
		t.Fatalf("Delete() error = %v, want success despite cleanup failure", err)
	}
	if res.ObjectRemoved {
		t.Error("ObjectRemoved = true, want false")
	}
	if len(repo.signals) != 0 {
		t.Error("record must be removed even when object cleanup fails")
	}
}

func TestDelete_ReferenceCountFailureKeepsObject(t *testing.T) {
	objects := newFakeObjects("a.csv")
	svc, repo := newTestService(t, objects)
	repo.seed("7", 1, "a.csv")
	repo.countErr = errors.New("database locked")

	res, err := svc.Delete(context.Background(), DeleteInput{UserID: "7", SignalID: "1"})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if res.ObjectRemoved || len(objects.deleted) != 0 {
		t.Error("object removed although its reference count was unknown")
	}
}

func TestDelete_Failures(t *testing.T) {
	tests := []struct {
		name     string
		in       DeleteInput
		sentinel error
		message  string
	}{
		{"empty user id", DeleteInput{SignalID: "1"}, apperror.ErrValidation, MsgDeleteLackIDs},
		{"empty signal id", DeleteInput{UserID: "7"}, apperror.ErrValidation, MsgDeleteLackIDs},
		{"non digit id", DeleteInput{UserID: "7", SignalID: "abc"}, apperror.ErrValidation, MsgInvalidID},
		{"absent record", DeleteInput{UserID: "7", SignalID: "9"}, apperror.ErrNotFound, MsgDeleteNotExist},
		{"digits beyond int range", DeleteInput{UserID: "7", SignalID: "99999999999999999999999"}, apperror.ErrNotFound, MsgDeleteNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			objects := newFakeObjects("a.csv")
			svc, repo := newTestService(t, objects)
			repo.seed("7", 1, "a.csv")

			_, err := svc.Delete(context.Background(), tt.in)
			assertAppError(t, err, tt.sentinel, tt.message)
			if len(repo.signals) != 1 || len(objects.deleted) != 0 {
				t.Error("failed delete must not touch the store")
			}
		})
	}
}

// =========================================================================
// END TO END
// =========================================================================

func TestLifecycle_CreateThenDelete(t *testing.T) {
	objects := newFakeObjects("a.csv")
	svc, repo := newTestService(t, objects)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{UserID: "7", Description: "x", ObjectKey: strPtr("a.csv")})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got := *created.Signal
	want := model.Signal{UserID: "7", SignalID: 1, Description: "x", ObjectKey: "a.csv"}
	if got != want {
		t.Fatalf("created = %+v, want %+v", got, want)
	}

	if _, err := svc.Delete(ctx, DeleteInput{UserID: "7", SignalID: "1"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	refs, _ := repo.CountReferences(ctx, "a.csv")
	if refs != 0 {
		t.Errorf("references to a.csv = %d, want 0", refs)
	}
	if _, ok := objects.objects["a.csv"]; ok {
		t.Error("a.csv should have been removed from the object store")
	}

	// The freed identifier is reused.
	objects.objects["a.csv"] = "x,y\n"
	again, err := svc.Create(ctx, CreateInput{UserID: "7", ObjectKey: strPtr("a.csv")})
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if again.Signal.SignalID != 1 {
		t.Errorf("reused SignalID = %d, want 1", again.Signal.SignalID)
	}
}

package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/database"
	"soofia-clockbook/app/models"
)

var errBoom = errors.New("boom")

func date(s string) time.Time {
	d, err := time.Parse(attendance.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// faultyStore fails selected operations of an otherwise working MemoryStore.
type faultyStore struct {
	*database.MemoryStore

	// upsertsBeforeFailure fails every upsert after that many succeeded; negative disables.
	upsertsBeforeFailure int
	upserts              int

	deleteAttendanceErr error
	deleteTeacherErr    error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: database.NewMemoryStore(), upsertsBeforeFailure: -1}
}

func (s *faultyStore) UpsertAttendance(ctx context.Context, rec models.TeacherAttendance) error {
	if s.upsertsBeforeFailure >= 0 && s.upserts >= s.upsertsBeforeFailure {
		return errBoom
	}
	s.upserts++
	return s.MemoryStore.UpsertAttendance(ctx, rec)
}

func (s *faultyStore) DeleteAttendance(ctx context.Context, f attendance.AttendanceFilter) (int64, error) {
	if s.deleteAttendanceErr != nil {
		return 0, s.deleteAttendanceErr
	}
	return s.MemoryStore.DeleteAttendance(ctx, f)
}

func (s *faultyStore) DeleteTeacher(ctx context.Context, id string) error {
	if s.deleteTeacherErr != nil {
		return s.deleteTeacherErr
	}
	return s.MemoryStore.DeleteTeacher(ctx, id)
}

// cascadeStore adds an atomic cascade on top of the memory store.
type cascadeStore struct {
	*database.MemoryStore
	calls int
}

func (s *cascadeStore) DeleteTeacherCascade(ctx context.Context, id string) (int64, error) {
	s.calls++
	n, err := s.MemoryStore.DeleteAttendance(ctx, attendance.AttendanceFilter{TeacherID: id})
	if err != nil {
		return 0, err
	}
	return n, s.MemoryStore.DeleteTeacher(ctx, id)
}

func seedTeachers(t *testing.T, store attendance.Store, names ...[2]string) []models.Teacher {
	t.Helper()
	roster := attendance.NewTeachers(store)
	out := make([]models.Teacher, 0, len(names))
	for _, n := range names {
		teacher, err := roster.Create(context.Background(), n[0], n[1], nil)
		require.NoError(t, err)
		out = append(out, *teacher)
	}
	return out
}

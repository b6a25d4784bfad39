package attendance

import (
	"context"
	"time"

	"soofia-clockbook/app/models"
)

// AttendanceFilter selects rows for DeleteAttendance. Exactly one field is expected.
type AttendanceFilter struct {
	TeacherID string
	WeekID    string
	// BeforeWeekID matches every row whose week id sorts before it.
	BeforeWeekID string
}

// Empty reports whether the filter would match nothing in particular.
func (f AttendanceFilter) Empty() bool {
	return f.TeacherID == "" && f.WeekID == "" && f.BeforeWeekID == ""
}

// Store is the persistence contract the engine depends on. Implementations
// return ErrNotFound (possibly wrapped) for missing teachers.
type Store interface {
	QueryAttendance(ctx context.Context, from, to time.Time, teacherIDs []string) ([]models.TeacherAttendance, error)
	UpsertAttendance(ctx context.Context, rec models.TeacherAttendance) error
	DeleteAttendance(ctx context.Context, filter AttendanceFilter) (int64, error)

	// QueryTeachers returns the roster ordered by surname, then name.
	QueryTeachers(ctx context.Context) ([]models.Teacher, error)
	GetTeacher(ctx context.Context, id string) (*models.Teacher, error)
	CreateTeacher(ctx context.Context, t *models.Teacher) error
	UpdateTeacher(ctx context.Context, t *models.Teacher) error
	DeleteTeacher(ctx context.Context, id string) error
}

// CascadeDeleter is implemented by stores that can remove a teacher and its
// attendance in one transaction. It returns the number of attendance rows removed.
type CascadeDeleter interface {
	DeleteTeacherCascade(ctx context.Context, id string) (int64, error)
}

package attendance

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"soofia-clockbook/app/models"
)

// TeacherPatch carries a partial update; nil fields are left alone.
type TeacherPatch struct {
	Name    *string `json:"name"`
	Surname *string `json:"surname"`
	Subject *string `json:"subject"`
}

// Teachers manages the roster and keeps attendance free of orphaned rows.
type Teachers struct {
	store Store
}

func NewTeachers(store Store) *Teachers {
	return &Teachers{store: store}
}

// List returns the roster ordered by surname.
func (m *Teachers) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := m.store.QueryTeachers(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "query teachers", Err: err}
	}
	return teachers, nil
}

// Get returns a single teacher.
func (m *Teachers) Get(ctx context.Context, id string) (*models.Teacher, error) {
	t, err := m.store.GetTeacher(ctx, id)
	if err != nil {
		return nil, m.lookupError(id, err)
	}
	return t, nil
}

// Create adds a teacher. Name and surname are required.
func (m *Teachers) Create(ctx context.Context, name, surname string, subject *string) (*models.Teacher, error) {
	t := &models.Teacher{
		Name:    strings.TrimSpace(name),
		Surname: strings.TrimSpace(surname),
		Subject: normalizeSubject(subject),
	}
	if err := validateTeacher(t); err != nil {
		return nil, err
	}
	if err := m.store.CreateTeacher(ctx, t); err != nil {
		return nil, &PersistenceError{Op: "create teacher", Err: err}
	}
	log.WithFields(log.Fields{"teacher_id": t.ID, "surname": t.Surname}).Info("teacher created")
	return t, nil
}

// Update applies a partial update to an existing teacher.
func (m *Teachers) Update(ctx context.Context, id string, patch TeacherPatch) (*models.Teacher, error) {
	t, err := m.store.GetTeacher(ctx, id)
	if err != nil {
		return nil, m.lookupError(id, err)
	}
	if patch.Name != nil {
		t.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Surname != nil {
		t.Surname = strings.TrimSpace(*patch.Surname)
	}
	if patch.Subject != nil {
		t.Subject = normalizeSubject(patch.Subject)
	}
	if err := validateTeacher(t); err != nil {
		return nil, err
	}
	if err := m.store.UpdateTeacher(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Kind: "teacher", ID: id}
		}
		return nil, &PersistenceError{Op: "update teacher", Err: err}
	}
	return t, nil
}

// Delete removes a teacher together with all of its attendance rows.
// Attendance goes first; if that fails the teacher row is not touched.
func (m *Teachers) Delete(ctx context.Context, id string) error {
	if _, err := m.store.GetTeacher(ctx, id); err != nil {
		return m.lookupError(id, err)
	}
	entry := log.WithField("teacher_id", id)

	if cd, ok := m.store.(CascadeDeleter); ok {
		n, err := cd.DeleteTeacherCascade(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return &NotFoundError{Kind: "teacher", ID: id}
			}
			return &SequencingError{TeacherID: id, Phase: PhaseAttendance, Err: err}
		}
		entry.WithField("attendance_deleted", n).Info("teacher deleted")
		return nil
	}

	n, err := m.store.DeleteAttendance(ctx, AttendanceFilter{TeacherID: id})
	if err != nil {
		entry.WithError(err).Warn("attendance cascade failed, teacher kept")
		return &SequencingError{TeacherID: id, Phase: PhaseAttendance, Err: err}
	}
	if err := m.store.DeleteTeacher(ctx, id); err != nil {
		entry.WithError(err).WithField("attendance_deleted", n).Error("teacher delete failed after cascade")
		return &SequencingError{TeacherID: id, Phase: PhaseTeacher, AttendanceDeleted: n, Err: err}
	}
	entry.WithField("attendance_deleted", n).Info("teacher deleted")
	return nil
}

func (m *Teachers) lookupError(id string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Kind: "teacher", ID: id}
	}
	return &PersistenceError{Op: "get teacher", Err: err}
}

func validateTeacher(t *models.Teacher) error {
	if err := validate.Struct(t); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			msg := "is required"
			if fe.Tag() == "max" {
				msg = "must be at most " + fe.Param() + " characters"
			}
			return &ValidationError{Field: fieldName(fe.Field()), Message: msg}
		}
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func normalizeSubject(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

var fieldNames = map[string]string{
	"TeacherID": "teacher_id",
	"ClockIn":   "clock_in",
	"ClockOut":  "clock_out",
	"WeekID":    "week_id",
}

// fieldName maps a struct field to the name clients send.
func fieldName(f string) string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return strings.ToLower(f)
}

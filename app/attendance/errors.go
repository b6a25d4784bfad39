package attendance

import (
	"errors"
	"fmt"
)

// ValidationError is returned before any state is touched when input is malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NotFoundError is returned when an operation addresses a missing teacher or cell.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// PersistenceError wraps a store failure. Pending holds every intent that was
// not applied, starting with the one that failed.
type PersistenceError struct {
	Op      string
	Pending []Upsert
	Err     error
}

func (e *PersistenceError) Error() string {
	if len(e.Pending) > 0 {
		return fmt.Sprintf("%s: %v (%d writes pending)", e.Op, e.Err, len(e.Pending))
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Phases of a cascading teacher delete.
const (
	PhaseAttendance = "attendance"
	PhaseTeacher    = "teacher"
)

// SequencingError reports a failed cascading delete. When Phase is
// PhaseAttendance the teacher row was never touched. When Phase is
// PhaseTeacher the attendance rows are already gone and the teacher row is
// still present, which callers must surface to the user.
type SequencingError struct {
	TeacherID         string
	Phase             string
	AttendanceDeleted int64
	Err               error
}

func (e *SequencingError) Error() string {
	if e.Phase == PhaseTeacher {
		return fmt.Sprintf("delete teacher %s: %d attendance rows removed but teacher row kept: %v",
			e.TeacherID, e.AttendanceDeleted, e.Err)
	}
	return fmt.Sprintf("delete teacher %s: attendance cascade failed, nothing deleted: %v", e.TeacherID, e.Err)
}

func (e *SequencingError) Unwrap() error { return e.Err }

// Partial reports whether attendance rows were removed while the teacher survived.
func (e *SequencingError) Partial() bool {
	return e.Phase == PhaseTeacher
}

// ErrNotFound is the sentinel stores return for missing rows. It is converted
// to a *NotFoundError at the engine boundary.
var ErrNotFound = errors.New("not found")

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a *NotFoundError or ErrNotFound.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, ErrNotFound)
}

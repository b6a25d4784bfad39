package attendance

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"soofia-clockbook/app/models"
)

// Field names an editable part of a cell.
type Field string

const (
	FieldStatus   Field = "status"
	FieldClockIn  Field = "clock_in"
	FieldClockOut Field = "clock_out"
	FieldHours    Field = "hours"
)

const timeOfDayLayout = "15:04"

var validate = validator.New()

// ApplyEdit returns a copy of g with one field of one cell replaced. Invalid
// values are rejected with a *ValidationError and g is returned unchanged.
func ApplyEdit(g Grid, teacherID, date string, field Field, value string) (Grid, error) {
	k := Key{TeacherID: teacherID, Date: date}
	cell, ok := g.cells[k]
	if !ok {
		return g, &NotFoundError{Kind: "cell", ID: teacherID + "@" + date}
	}
	cell = cell.clone()
	value = strings.TrimSpace(value)
	// legacy rows without a status are never written back as unset
	if cell.Status == models.Unset {
		cell.Status = models.DefaultStatus
	}

	switch field {
	case FieldStatus:
		if err := validate.Var(value, "required,oneof=present absent"); err != nil {
			return g, &ValidationError{Field: string(field), Message: "must be present or absent"}
		}
		cell.Status = models.AttendanceStatus(value)
	case FieldClockIn, FieldClockOut:
		tod, err := parseTimeOfDay(value)
		if err != nil {
			return g, &ValidationError{Field: string(field), Message: err.Error()}
		}
		if field == FieldClockIn {
			cell.ClockIn = tod
		} else {
			cell.ClockOut = tod
		}
	case FieldHours:
		h, err := parseHours(value)
		if err != nil {
			return g, &ValidationError{Field: string(field), Message: err.Error()}
		}
		cell.Hours = h
	default:
		return g, &ValidationError{Field: "field", Message: "unknown field " + string(field)}
	}

	return g.with(k, cell), nil
}

type valueError string

func (e valueError) Error() string { return string(e) }

// parseTimeOfDay accepts H:MM or HH:MM and normalises to HH:MM. Empty clears the field.
func parseTimeOfDay(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if err := validate.Var(value, "datetime=15:04"); err != nil {
		return "", valueError("expected HH:MM, got " + value)
	}
	t, err := time.Parse(timeOfDayLayout, value)
	if err != nil {
		return "", valueError("expected HH:MM, got " + value)
	}
	return t.Format(timeOfDayLayout), nil
}

// parseHours accepts a decimal in [0, 24] with at most two decimal places,
// the precision of the hours column. Empty clears the field.
func parseHours(value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	h, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return nil, valueError("not a number: " + value)
	}
	if err := validate.Var(h, "gte=0,lte=24"); err != nil {
		return nil, valueError("must be between 0 and 24")
	}
	cents := math.Round(h * 100)
	if math.Abs(h*100-cents) > 1e-6 {
		return nil, valueError("at most two decimal places, got " + value)
	}
	h = cents / 100
	return &h, nil
}

// Upsert is one write intent produced by Diff.
type Upsert struct {
	TeacherID string                  `json:"teacher_id"`
	Date      time.Time               `json:"date"`
	Status    models.AttendanceStatus `json:"status"`
	ClockIn   string                  `json:"clock_in"`
	ClockOut  string                  `json:"clock_out"`
	Hours     *float64                `json:"hours"`
	WeekID    string                  `json:"week_id"`
}

// Key returns the grid key the intent writes.
func (u Upsert) Key() Key {
	return KeyOf(u.TeacherID, u.Date)
}

// Record converts the intent into a storable row.
func (u Upsert) Record(recordedBy string) models.TeacherAttendance {
	rec := models.TeacherAttendance{
		TeacherID: u.TeacherID,
		Date:      u.Date,
		Status:    u.Status,
		ClockIn:   u.ClockIn,
		ClockOut:  u.ClockOut,
		WeekID:    u.WeekID,
	}
	if u.Hours != nil {
		h := *u.Hours
		rec.Hours = &h
	}
	if recordedBy != "" {
		rec.RecordedBy = &recordedBy
	}
	return rec
}

// Diff lists an upsert for every cell of edited that differs from original.
// Cells dated outside window are skipped.
func Diff(original, edited Grid, window WeekWindow) []Upsert {
	var writes []Upsert
	for _, k := range edited.Keys() {
		cell := edited.cells[k]
		if prev, ok := original.cells[k]; ok && prev.Equal(cell) {
			continue
		}
		date, err := time.Parse(DateLayout, k.Date)
		if err != nil || !window.Contains(date) {
			continue
		}
		cell = cell.clone()
		writes = append(writes, Upsert{
			TeacherID: k.TeacherID,
			Date:      date,
			Status:    cell.Status,
			ClockIn:   cell.ClockIn,
			ClockOut:  cell.ClockOut,
			Hours:     cell.Hours,
			WeekID:    window.WeekID,
		})
	}
	return writes
}

// Outcome reports which intents of a write-set reached the store.
type Outcome struct {
	Applied []Upsert `json:"applied"`
	Pending []Upsert `json:"pending"`
}

// Reconciler loads grids from a Store and persists write-sets back to it.
type Reconciler struct {
	store      Store
	recordedBy string
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// As returns a reconciler that stamps every write with userID.
func (r *Reconciler) As(userID string) *Reconciler {
	return &Reconciler{store: r.store, recordedBy: userID}
}

// Load fetches the roster and the window's rows and builds the grid.
func (r *Reconciler) Load(ctx context.Context, window WeekWindow) ([]models.Teacher, Grid, error) {
	teachers, err := r.store.QueryTeachers(ctx)
	if err != nil {
		return nil, Grid{}, &PersistenceError{Op: "query teachers", Err: err}
	}
	ids := make([]string, len(teachers))
	for i, t := range teachers {
		ids[i] = t.ID
	}

	var records []models.TeacherAttendance
	if len(ids) > 0 {
		records, err = r.store.QueryAttendance(ctx, window.StartDate, window.EndDate, ids)
		if err != nil {
			return nil, Grid{}, &PersistenceError{Op: "query attendance", Err: err}
		}
	}
	return teachers, BuildGrid(teachers, window, records), nil
}

// Persist upserts every intent in order. It stops at the first failure or
// cancellation; the error is a *PersistenceError whose Pending lists the
// unapplied intents. Re-running the same write-set is always safe.
func (r *Reconciler) Persist(ctx context.Context, writes []Upsert) (Outcome, error) {
	out := Outcome{Applied: make([]Upsert, 0, len(writes))}
	for _, w := range writes {
		if err := checkRecord(w.Record(r.recordedBy)); err != nil {
			out.Pending = writes
			return out, err
		}
	}
	for i, w := range writes {
		if err := ctx.Err(); err != nil {
			out.Pending = writes[i:]
			return out, &PersistenceError{Op: "persist", Pending: out.Pending, Err: err}
		}
		if err := r.store.UpsertAttendance(ctx, w.Record(r.recordedBy)); err != nil {
			out.Pending = writes[i:]
			log.WithFields(log.Fields{
				"teacher_id": w.TeacherID,
				"date":       FormatDate(w.Date),
				"pending":    len(out.Pending),
			}).WithError(err).Warn("attendance upsert failed")
			return out, &PersistenceError{Op: "persist", Pending: out.Pending, Err: err}
		}
		out.Applied = append(out.Applied, w)
	}
	return out, nil
}

// checkRecord applies the row's validate tags before anything is written.
func checkRecord(rec models.TeacherAttendance) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   fieldName(fe.Field()),
			Message: "write for " + rec.TeacherID + "@" + FormatDate(rec.Date) + " fails " + fe.Tag(),
		}
	}
	return &ValidationError{Message: err.Error()}
}

// Save persists the difference between two grids of the same window.
func (r *Reconciler) Save(ctx context.Context, original, edited Grid, window WeekWindow) (Outcome, error) {
	writes := Diff(original, edited, window)
	if len(writes) == 0 {
		return Outcome{}, nil
	}
	out, err := r.Persist(ctx, writes)
	if err == nil {
		log.WithFields(log.Fields{"week_id": window.WeekID, "writes": len(out.Applied)}).Info("attendance saved")
	}
	return out, err
}

// DeleteWeek removes every row of one week.
func (r *Reconciler) DeleteWeek(ctx context.Context, weekID string) (int64, error) {
	if _, err := ParseWeekID(weekID); err != nil {
		return 0, err
	}
	n, err := r.store.DeleteAttendance(ctx, AttendanceFilter{WeekID: weekID})
	if err != nil {
		return 0, &PersistenceError{Op: "delete week", Err: err}
	}
	return n, nil
}

// PurgeBefore removes every row of every week that ends before weekID starts.
func (r *Reconciler) PurgeBefore(ctx context.Context, weekID string) (int64, error) {
	if _, err := ParseWeekID(weekID); err != nil {
		return 0, err
	}
	n, err := r.store.DeleteAttendance(ctx, AttendanceFilter{BeforeWeekID: weekID})
	if err != nil {
		return 0, &PersistenceError{Op: "purge past weeks", Err: err}
	}
	log.WithFields(log.Fields{"before": weekID, "deleted": n}).Info("past weeks purged")
	return n, nil
}

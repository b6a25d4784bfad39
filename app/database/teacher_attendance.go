package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
)

// PostgresStore keeps teachers and their attendance in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertAttendance saves a teacher's attendance for a day, replacing any row
// with the same (teacher_id, date, time_slot).
func (s *PostgresStore) UpsertAttendance(ctx context.Context, rec models.TeacherAttendance) error {
	query := `INSERT INTO teacher_attendances
			  (id, teacher_id, date, time_slot, status, clock_in, clock_out, hours, week_id, recorded_by, created_at, updated_at)
			  VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			  ON CONFLICT (teacher_id, date, time_slot)
			  DO UPDATE SET status = EXCLUDED.status, clock_in = EXCLUDED.clock_in, clock_out = EXCLUDED.clock_out,
			  hours = EXCLUDED.hours, week_id = EXCLUDED.week_id, recorded_by = EXCLUDED.recorded_by, updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query,
		rec.TeacherID, attendance.FormatDate(rec.Date), rec.TimeSlot, string(rec.Status),
		nullString(rec.ClockIn), nullString(rec.ClockOut), nullFloat(rec.Hours),
		rec.WeekID, nullStringPtr(rec.RecordedBy),
	)
	if isForeignKeyViolation(err) {
		return errors.Wrapf(attendance.ErrNotFound, "teacher %s", rec.TeacherID)
	}
	return errors.Wrap(err, "upsert teacher attendance")
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// QueryAttendance returns the rows of the given teachers between from and to, inclusive.
func (s *PostgresStore) QueryAttendance(ctx context.Context, from, to time.Time, teacherIDs []string) ([]models.TeacherAttendance, error) {
	query := `SELECT id, teacher_id, date, time_slot, status, clock_in, clock_out, hours, week_id, recorded_by, created_at, updated_at
			  FROM teacher_attendances
			  WHERE date BETWEEN $1 AND $2 AND teacher_id::text = ANY($3)
			  ORDER BY teacher_id, date, time_slot`

	rows, err := s.db.QueryContext(ctx, query, attendance.FormatDate(from), attendance.FormatDate(to), pq.Array(teacherIDs))
	if err != nil {
		return nil, errors.Wrap(err, "query teacher attendance")
	}
	defer rows.Close()

	records := make([]models.TeacherAttendance, 0)
	for rows.Next() {
		var (
			rec                      models.TeacherAttendance
			status                   string
			clockIn, clockOut, recBy sql.NullString
			hours                    sql.NullFloat64
		)
		err := rows.Scan(
			&rec.ID, &rec.TeacherID, &rec.Date, &rec.TimeSlot, &status, &clockIn, &clockOut,
			&hours, &rec.WeekID, &recBy, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan teacher attendance")
		}
		rec.Date = attendance.CivilDate(rec.Date)
		rec.Status = models.ParseStatus(status)
		rec.ClockIn = clockIn.String
		rec.ClockOut = clockOut.String
		if hours.Valid {
			h := hours.Float64
			rec.Hours = &h
		}
		if recBy.Valid {
			v := recBy.String
			rec.RecordedBy = &v
		}
		records = append(records, rec)
	}
	return records, errors.Wrap(rows.Err(), "iterate teacher attendance")
}

// DeleteAttendance removes rows by teacher, by week, or every week before a week id.
func (s *PostgresStore) DeleteAttendance(ctx context.Context, filter attendance.AttendanceFilter) (int64, error) {
	return deleteAttendance(ctx, s.db, filter)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func deleteAttendance(ctx context.Context, db execer, filter attendance.AttendanceFilter) (int64, error) {
	var (
		query string
		arg   string
	)
	switch {
	case filter.TeacherID != "":
		query, arg = `DELETE FROM teacher_attendances WHERE teacher_id = $1`, filter.TeacherID
	case filter.WeekID != "":
		query, arg = `DELETE FROM teacher_attendances WHERE week_id = $1`, filter.WeekID
	case filter.BeforeWeekID != "":
		query, arg = `DELETE FROM teacher_attendances WHERE week_id < $1`, filter.BeforeWeekID
	default:
		return 0, errors.New("delete attendance: empty filter")
	}

	result, err := db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, errors.Wrap(err, "delete teacher attendance")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get affected rows")
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

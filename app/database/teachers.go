package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
)

// QueryTeachers gets the whole roster ordered by surname
func (s *PostgresStore) QueryTeachers(ctx context.Context) ([]models.Teacher, error) {
	query := `SELECT id, name, surname, subject, created_at, updated_at
			  FROM teachers
			  ORDER BY surname, name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query teachers")
	}
	defer rows.Close()

	teachers := make([]models.Teacher, 0)
	for rows.Next() {
		var t models.Teacher
		var subject sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &t.Surname, &subject, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan teacher")
		}
		if subject.Valid {
			v := subject.String
			t.Subject = &v
		}
		teachers = append(teachers, t)
	}
	return teachers, errors.Wrap(rows.Err(), "iterate teachers")
}

// GetTeacher retrieves a single teacher by ID
func (s *PostgresStore) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, attendance.ErrNotFound
	}

	query := `SELECT id, name, surname, subject, created_at, updated_at
			  FROM teachers
			  WHERE id = $1`

	t := &models.Teacher{}
	var subject sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Surname, &subject, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, attendance.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get teacher")
	}
	if subject.Valid {
		v := subject.String
		t.Subject = &v
	}
	return t, nil
}

// CreateTeacher inserts a teacher and fills in the generated ID and timestamps
func (s *PostgresStore) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	query := `INSERT INTO teachers (name, surname, subject, created_at, updated_at)
			  VALUES ($1, $2, $3, NOW(), NOW())
			  RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query, t.Name, t.Surname, nullStringPtr(t.Subject)).Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt,
	)
	return errors.Wrap(err, "create teacher")
}

// UpdateTeacher overwrites name, surname and subject
func (s *PostgresStore) UpdateTeacher(ctx context.Context, t *models.Teacher) error {
	query := `UPDATE teachers
			  SET name = $1, surname = $2, subject = $3, updated_at = NOW()
			  WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query, t.Name, t.Surname, nullStringPtr(t.Subject), t.ID)
	if err != nil {
		return errors.Wrap(err, "failed to update teacher")
	}
	return expectOneRow(result)
}

// DeleteTeacher removes only the teacher row. Callers delete attendance first.
func (s *PostgresStore) DeleteTeacher(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete teacher")
	}
	return expectOneRow(result)
}

// DeleteTeacherCascade removes the teacher's attendance and then the teacher
// inside one transaction.
func (s *PostgresStore) DeleteTeacherCascade(ctx context.Context, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	n, err := deleteAttendance(ctx, tx, attendance.AttendanceFilter{TeacherID: id})
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete teacher")
	}
	if err := expectOneRow(result); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit changes")
	}
	return n, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get affected rows")
	}
	if rowsAffected == 0 {
		return attendance.ErrNotFound
	}
	return nil
}

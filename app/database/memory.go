package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
)

type memoryKey struct {
	teacherID string
	date      string
	timeSlot  string
}

// MemoryStore is a process-local Store. It has no transactions, so teacher
// deletion runs the two-phase sequence.
type MemoryStore struct {
	mu       sync.RWMutex
	teachers map[string]models.Teacher
	records  map[memoryKey]models.TeacherAttendance
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teachers: make(map[string]models.Teacher),
		records:  make(map[memoryKey]models.TeacherAttendance),
		now:      time.Now,
	}
}

func keyOfRecord(rec models.TeacherAttendance) memoryKey {
	return memoryKey{teacherID: rec.TeacherID, date: attendance.FormatDate(rec.Date), timeSlot: rec.TimeSlot}
}

func (s *MemoryStore) UpsertAttendance(ctx context.Context, rec models.TeacherAttendance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// mirrors the teacher_id foreign key of the postgres schema
	if _, ok := s.teachers[rec.TeacherID]; !ok {
		return errors.Wrapf(attendance.ErrNotFound, "teacher %s", rec.TeacherID)
	}
	rec.Date = attendance.CivilDate(rec.Date)
	k := keyOfRecord(rec)
	now := s.now()
	if prev, ok := s.records[k]; ok {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[k] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) QueryAttendance(ctx context.Context, from, to time.Time, teacherIDs []string) ([]models.TeacherAttendance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(teacherIDs))
	for _, id := range teacherIDs {
		wanted[id] = true
	}
	from, to = attendance.CivilDate(from), attendance.CivilDate(to)

	out := make([]models.TeacherAttendance, 0)
	for _, rec := range s.records {
		if !wanted[rec.TeacherID] || rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := keyOfRecord(out[i]), keyOfRecord(out[j])
		if a.teacherID != b.teacherID {
			return a.teacherID < b.teacherID
		}
		if a.date != b.date {
			return a.date < b.date
		}
		return a.timeSlot < b.timeSlot
	})
	return out, nil
}

func (s *MemoryStore) DeleteAttendance(ctx context.Context, filter attendance.AttendanceFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if filter.Empty() {
		return 0, errors.New("delete attendance: empty filter")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.records {
		var match bool
		switch {
		case filter.TeacherID != "":
			match = rec.TeacherID == filter.TeacherID
		case filter.WeekID != "":
			match = rec.WeekID == filter.WeekID
		default:
			match = rec.WeekID < filter.BeforeWeekID
		}
		if match {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) QueryTeachers(ctx context.Context) ([]models.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		out = append(out, copyTeacher(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Surname != out[j].Surname {
			return out[i].Surname < out[j].Surname
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teachers[id]
	if !ok {
		return nil, attendance.ErrNotFound
	}
	c := copyTeacher(t)
	return &c, nil
}

func (s *MemoryStore) CreateTeacher(ctx context.Context, t *models.Teacher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.teachers[t.ID] = copyTeacher(*t)
	return nil
}

func (s *MemoryStore) UpdateTeacher(ctx context.Context, t *models.Teacher) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.teachers[t.ID]
	if !ok {
		return attendance.ErrNotFound
	}
	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = s.now()
	s.teachers[t.ID] = copyTeacher(*t)
	return nil
}

func (s *MemoryStore) DeleteTeacher(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teachers[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(s.teachers, id)
	return nil
}

// AttendanceCount reports how many rows are stored, optionally for one teacher.
func (s *MemoryStore) AttendanceCount(teacherID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if teacherID == "" {
		return len(s.records)
	}
	n := 0
	for _, rec := range s.records {
		if rec.TeacherID == teacherID {
			n++
		}
	}
	return n
}

func copyTeacher(t models.Teacher) models.Teacher {
	if t.Subject != nil {
		v := *t.Subject
		t.Subject = &v
	}
	return t
}

func copyRecord(rec models.TeacherAttendance) models.TeacherAttendance {
	if rec.Hours != nil {
		h := *rec.Hours
		rec.Hours = &h
	}
	if rec.RecordedBy != nil {
		v := *rec.RecordedBy
		rec.RecordedBy = &v
	}
	return rec
}

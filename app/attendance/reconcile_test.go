package attendance_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"soofia-clockbook/app/attendance"
	"soofia-clockbook/app/models"
)

func TestApplyEditStatus(t *testing.T) {
	g := attendance.BuildGrid(roster(), attendance.ComputeWeek(date("2024-01-10")), nil)

	edited, err := attendance.ApplyEdit(g, "t-1", "2024-01-10", attendance.FieldStatus, "present")
	require.NoError(t, err)

	c, _ := edited.Cell("t-1", "2024-01-10")
	assert.Equal(t, models.Present, c.Status)
	orig, _ := g.Cell("t-1", "2024-01-10")
	assert.Equal(t, models.Absent, orig.Status)

	for _, v := range []string{"", "unset", "late", "PRESENT"} {
		out, err := attendance.ApplyEdit(g, "t-1", "2024-01-10", attendance.FieldStatus, v)
		var ve *attendance.ValidationError
		require.ErrorAs(t, err, &ve, "value %q", v)
		assert.Equal(t, "status", ve.Field)
		assert.True(t, g.Equal(out))
	}
}

func TestApplyEditTimes(t *testing.T) {
	g := attendance.BuildGrid(roster(), attendance.ComputeWeek(date("2024-01-10")), nil)

	g, err := attendance.ApplyEdit(g, "t-2", "2024-01-08", attendance.FieldClockIn, "7:05")
	require.NoError(t, err)
	g, err = attendance.ApplyEdit(g, "t-2", "2024-01-08", attendance.FieldClockOut, "15:30")
	require.NoError(t, err)

	c, _ := g.Cell("t-2", "2024-01-08")
	assert.Equal(t, "07:05", c.ClockIn)
	assert.Equal(t, "15:30", c.ClockOut)

	g, err = attendance.ApplyEdit(g, "t-2", "2024-01-08", attendance.FieldClockIn, "")
	require.NoError(t, err)
	c, _ = g.Cell("t-2", "2024-01-08")
	assert.Equal(t, "", c.ClockIn)

	for _, v := range []string{"25:00", "7", "07:60", "noon"} {
		_, err := attendance.ApplyEdit(g, "t-2", "2024-01-08", attendance.FieldClockOut, v)
		assert.True(t, attendance.IsValidation(err), "value %q", v)
	}
}

func TestApplyEditHours(t *testing.T) {
	g := attendance.BuildGrid(roster(), attendance.ComputeWeek(date("2024-01-10")), nil)

	g, err := attendance.ApplyEdit(g, "t-1", "2024-01-11", attendance.FieldHours, "7.5")
	require.NoError(t, err)
	c, _ := g.Cell("t-1", "2024-01-11")
	require.NotNil(t, c.Hours)
	assert.Equal(t, 7.5, *c.Hours)

	g, err = attendance.ApplyEdit(g, "t-1", "2024-01-11", attendance.FieldHours, "")
	require.NoError(t, err)
	c, _ = g.Cell("t-1", "2024-01-11")
	assert.Nil(t, c.Hours)

	for _, v := range []string{"-1", "24.5", "abc", "NaN", "Inf"} {
		_, err := attendance.ApplyEdit(g, "t-1", "2024-01-11", attendance.FieldHours, v)
		assert.True(t, attendance.IsValidation(err), "value %q", v)
	}
}

func TestApplyEditUnknownTargets(t *testing.T) {
	g := attendance.BuildGrid(roster(), attendance.ComputeWeek(date("2024-01-10")), nil)

	_, err := attendance.ApplyEdit(g, "t-9", "2024-01-10", attendance.FieldStatus, "present")
	assert.True(t, attendance.IsNotFound(err))

	_, err = attendance.ApplyEdit(g, "t-1", "2024-01-13", attendance.FieldStatus, "present")
	assert.True(t, attendance.IsNotFound(err))

	_, err = attendance.ApplyEdit(g, "t-1", "2024-01-10", attendance.Field("notes"), "x")
	assert.True(t, attendance.IsValidation(err))
}

func TestDiff(t *testing.T) {
	w := attendance.ComputeWeek(date("2024-01-10"))
	original := attendance.BuildGrid(roster(), w, []models.TeacherAttendance{
		{TeacherID: "t-1", Date: date("2024-01-08"), Status: models.Present, Hours: floatPtr(8)},
	})

	assert.Empty(t, attendance.Diff(original, original.Clone(), w))

	// setting a value to what it already is produces no write
	same, err := attendance.ApplyEdit(original, "t-1", "2024-01-08", attendance.FieldHours, "8.0")
	require.NoError(t, err)
	assert.Empty(t, attendance.Diff(original, same, w))

	edited, err := attendance.ApplyEdit(original, "t-2", "2024-01-12", attendance.FieldStatus, "present")
	require.NoError(t, err)
	edited, err = attendance.ApplyEdit(edited, "t-1", "2024-01-08", attendance.FieldClockIn, "07:45")
	require.NoError(t, err)

	writes := attendance.Diff(original, edited, w)
	require.Len(t, writes, 2)

	assert.Equal(t, "t-1", writes[0].TeacherID)
	assert.Equal(t, date("2024-01-08"), writes[0].Date)
	assert.Equal(t, "07:45", writes[0].ClockIn)
	assert.Equal(t, models.Present, writes[0].Status)
	assert.Equal(t, w.WeekID, writes[0].WeekID)

	assert.Equal(t, attendance.Key{TeacherID: "t-2", Date: "2024-01-12"}, writes[1].Key())
	assert.Equal(t, models.Present, writes[1].Status)
}

func TestDiffSkipsCellsOutsideWindow(t *testing.T) {
	w := attendance.ComputeWeek(date("2024-01-10"))
	other := attendance.ShiftWeek(w, 1)
	g := attendance.BuildGrid(roster(), w, nil)
	edited, err := attendance.ApplyEdit(g, "t-1", "2024-01-10", attendance.FieldStatus, "present")
	require.NoError(t, err)

	assert.Empty(t, attendance.Diff(g, edited, other))
}

func TestUpsertRecord(t *testing.T) {
	u := attendance.Upsert{TeacherID: "t-1", Date: date("2024-01-10"), Status: models.Present, Hours: floatPtr(4), WeekID: "w"}

	rec := u.Record("admin-1")
	require.NotNil(t, rec.RecordedBy)
	assert.Equal(t, "admin-1", *rec.RecordedBy)
	assert.Equal(t, "", rec.TimeSlot)
	*rec.Hours = 9
	assert.Equal(t, 4.0, *u.Hours)

	assert.Nil(t, u.Record("").RecordedBy)
}

type ReconcilerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *faultyStore
	teachers []models.Teacher
	window   attendance.WeekWindow
	rec      *attendance.Reconciler
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newFaultyStore()
	s.teachers = seedTeachers(s.T(), s.store, [2]string{"Amina", "Dlamini"}, [2]string{"Ben", "Khumalo"})
	s.window = attendance.ComputeWeek(date("2024-01-10"))
	s.rec = attendance.NewReconciler(s.store)
}

func (s *ReconcilerSuite) edit(g attendance.Grid, teacher int, day string, f attendance.Field, v string) attendance.Grid {
	out, err := attendance.ApplyEdit(g, s.teachers[teacher].ID, day, f, v)
	s.Require().NoError(err)
	return out
}

func (s *ReconcilerSuite) TestLoadEmptyWeek() {
	teachers, g, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.Len(teachers, 2)
	s.Equal("Dlamini", teachers[0].Surname)
	s.Equal(10, g.Len())
}

func (s *ReconcilerSuite) TestLoadWithoutTeachers() {
	rec := attendance.NewReconciler(newFaultyStore())
	teachers, g, err := rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.Empty(teachers)
	s.Equal(0, g.Len())
}

func (s *ReconcilerSuite) TestSaveRoundTrip() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)

	edited := s.edit(original, 0, "2024-01-08", attendance.FieldStatus, "present")
	edited = s.edit(edited, 0, "2024-01-08", attendance.FieldClockIn, "07:30")
	edited = s.edit(edited, 1, "2024-01-11", attendance.FieldHours, "6.25")

	out, err := s.rec.As("admin-1").Save(s.ctx, original, edited, s.window)
	s.Require().NoError(err)
	s.Len(out.Applied, 2)
	s.Empty(out.Pending)

	_, reloaded, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.True(edited.Equal(reloaded))

	rows, err := s.store.QueryAttendance(s.ctx, s.window.StartDate, s.window.EndDate, []string{s.teachers[0].ID})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(s.window.WeekID, rows[0].WeekID)
	s.Require().NotNil(rows[0].RecordedBy)
	s.Equal("admin-1", *rows[0].RecordedBy)

	// saving the same state again writes nothing
	out, err = s.rec.Save(s.ctx, reloaded, reloaded.Clone(), s.window)
	s.Require().NoError(err)
	s.Empty(out.Applied)
}

func (s *ReconcilerSuite) TestSaveUpdatesInPlace() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	first := s.edit(original, 0, "2024-01-09", attendance.FieldStatus, "present")
	_, err = s.rec.Save(s.ctx, original, first, s.window)
	s.Require().NoError(err)

	second := s.edit(first, 0, "2024-01-09", attendance.FieldStatus, "absent")
	_, err = s.rec.Save(s.ctx, first, second, s.window)
	s.Require().NoError(err)

	s.Equal(1, s.store.AttendanceCount(s.teachers[0].ID))
	_, reloaded, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	c, _ := reloaded.Cell(s.teachers[0].ID, "2024-01-09")
	s.Equal(models.Absent, c.Status)
}

func (s *ReconcilerSuite) TestPersistReportsPendingOnFailure() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	edited := original
	for _, day := range s.window.DayKeys()[:3] {
		edited = s.edit(edited, 0, day, attendance.FieldStatus, "present")
	}
	writes := attendance.Diff(original, edited, s.window)
	s.Require().Len(writes, 3)

	s.store.upsertsBeforeFailure = 1
	out, err := s.rec.Persist(s.ctx, writes)

	var pe *attendance.PersistenceError
	s.Require().ErrorAs(err, &pe)
	s.ErrorIs(err, errBoom)
	s.Len(out.Applied, 1)
	s.Equal(writes[1:], out.Pending)
	s.Equal(writes[1:], pe.Pending)

	// retrying the pending intents completes the write-set
	s.store.upsertsBeforeFailure = -1
	out, err = s.rec.Persist(s.ctx, pe.Pending)
	s.Require().NoError(err)
	s.Len(out.Applied, 2)

	_, reloaded, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.True(edited.Equal(reloaded))
}

func (s *ReconcilerSuite) TestPersistStopsOnCancel() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	edited := s.edit(original, 1, "2024-01-12", attendance.FieldStatus, "present")
	writes := attendance.Diff(original, edited, s.window)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	out, err := s.rec.Persist(ctx, writes)

	s.True(errors.Is(err, context.Canceled))
	s.Empty(out.Applied)
	s.Equal(writes, out.Pending)
	s.Equal(0, s.store.AttendanceCount(""))
}

func (s *ReconcilerSuite) TestDeleteWeekAndPurge() {
	weeks := []attendance.WeekWindow{attendance.ShiftWeek(s.window, -2), attendance.ShiftWeek(s.window, -1), s.window}
	for _, w := range weeks {
		_, g, err := s.rec.Load(s.ctx, w)
		s.Require().NoError(err)
		edited := s.edit(g, 0, w.DayKeys()[0], attendance.FieldStatus, "present")
		edited = s.edit(edited, 1, w.DayKeys()[1], attendance.FieldStatus, "present")
		_, err = s.rec.Save(s.ctx, g, edited, w)
		s.Require().NoError(err)
	}
	s.Equal(6, s.store.AttendanceCount(""))

	n, err := s.rec.DeleteWeek(s.ctx, weeks[1].WeekID)
	s.Require().NoError(err)
	s.EqualValues(2, n)

	n, err = s.rec.PurgeBefore(s.ctx, s.window.WeekID)
	s.Require().NoError(err)
	s.EqualValues(2, n)
	s.Equal(2, s.store.AttendanceCount(""))

	_, err = s.rec.DeleteWeek(s.ctx, "last-week")
	s.True(attendance.IsValidation(err))
	_, err = s.rec.PurgeBefore(s.ctx, "")
	s.True(attendance.IsValidation(err))
}

func (s *ReconcilerSuite) TestDeleteWeekStoreFailure() {
	s.store.deleteAttendanceErr = errBoom
	_, err := s.rec.DeleteWeek(s.ctx, s.window.WeekID)

	var pe *attendance.PersistenceError
	s.Require().ErrorAs(err, &pe)
	s.Equal("delete week", pe.Op)
}

func TestApplyEditHoursPrecision(t *testing.T) {
	g := attendance.BuildGrid(roster(), attendance.ComputeWeek(date("2024-01-10")), nil)

	// the hours column is numeric(4,2)
	_, err := attendance.ApplyEdit(g, "t-1", "2024-01-11", attendance.FieldHours, "7.125")
	var ve *attendance.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "hours", ve.Field)

	for in, want := range map[string]float64{"7.25": 7.25, "6.28": 6.28, "7.10": 7.1, "8": 8} {
		out, err := attendance.ApplyEdit(g, "t-1", "2024-01-11", attendance.FieldHours, in)
		require.NoError(t, err, "value %q", in)
		c, _ := out.Cell("t-1", "2024-01-11")
		require.NotNil(t, c.Hours)
		assert.Equal(t, want, *c.Hours, "value %q", in)
	}
}

func TestApplyEditTimeOnLegacyUnsetRow(t *testing.T) {
	w := attendance.ComputeWeek(date("2024-01-10"))
	original := attendance.BuildGrid(roster(), w, []models.TeacherAttendance{
		{TeacherID: "t-2", Date: date("2024-01-12"), Status: ""},
	})
	c, _ := original.Cell("t-2", "2024-01-12")
	require.Equal(t, models.Unset, c.Status)

	edited, err := attendance.ApplyEdit(original, "t-2", "2024-01-12", attendance.FieldClockIn, "08:00")
	require.NoError(t, err)
	c, _ = edited.Cell("t-2", "2024-01-12")
	assert.Equal(t, models.Absent, c.Status)
	assert.Equal(t, "08:00", c.ClockIn)

	writes := attendance.Diff(original, edited, w)
	require.Len(t, writes, 1)
	assert.Equal(t, models.Absent, writes[0].Status)
}

func TestDiffMondayEditFromMidweekDate(t *testing.T) {
	w := attendance.ComputeWeek(date("2024-03-13"))
	require.Equal(t, "2024-03-11_to_2024-03-15", w.WeekID)
	require.Equal(t, []string{"2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14", "2024-03-15"}, w.DayKeys())

	teachers := []models.Teacher{{ID: "T1", Name: "Amina", Surname: "Dlamini"}, {ID: "T2", Name: "Ben", Surname: "Khumalo"}}
	original := attendance.BuildGrid(teachers, w, nil)
	c, _ := original.Cell("T1", "2024-03-11")
	require.Equal(t, attendance.DefaultCell(), c)

	edited, err := attendance.ApplyEdit(original, "T1", "2024-03-11", attendance.FieldStatus, "present")
	require.NoError(t, err)
	edited, err = attendance.ApplyEdit(edited, "T1", "2024-03-11", attendance.FieldClockIn, "08:00")
	require.NoError(t, err)

	writes := attendance.Diff(original, edited, w)
	require.Len(t, writes, 1)
	assert.Equal(t, attendance.Key{TeacherID: "T1", Date: "2024-03-11"}, writes[0].Key())
	assert.Equal(t, models.Present, writes[0].Status)
	assert.Equal(t, "08:00", writes[0].ClockIn)
	assert.Equal(t, "", writes[0].ClockOut)
	assert.Nil(t, writes[0].Hours)
	assert.Equal(t, "2024-03-11_to_2024-03-15", writes[0].WeekID)
}

func (s *ReconcilerSuite) TestPersistSameWriteSetTwice() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	edited := original
	for _, day := range s.window.DayKeys() {
		edited = s.edit(edited, 0, day, attendance.FieldStatus, "present")
	}
	edited = s.edit(edited, 1, "2024-01-10", attendance.FieldHours, "4.5")
	writes := attendance.Diff(original, edited, s.window)
	s.Require().Len(writes, 6)

	_, err = s.rec.Persist(s.ctx, writes)
	s.Require().NoError(err)
	s.Equal(6, s.store.AttendanceCount(""))

	out, err := s.rec.Persist(s.ctx, writes)
	s.Require().NoError(err)
	s.Len(out.Applied, 6)
	s.Equal(6, s.store.AttendanceCount(""))

	_, reloaded, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.True(edited.Equal(reloaded))
}

func (s *ReconcilerSuite) TestPersistRejectsInvalidWriteBeforeWriting() {
	writes := []attendance.Upsert{
		{TeacherID: s.teachers[0].ID, Date: date("2024-01-08"), Status: models.Present, WeekID: s.window.WeekID},
		{TeacherID: s.teachers[1].ID, Date: date("2024-01-09"), Status: models.Unset, WeekID: s.window.WeekID},
	}

	out, err := s.rec.Persist(s.ctx, writes)

	var ve *attendance.ValidationError
	s.Require().ErrorAs(err, &ve)
	s.Equal("status", ve.Field)
	s.Empty(out.Applied)
	s.Equal(writes, out.Pending)
	s.Equal(0, s.store.AttendanceCount(""))

	bad := []attendance.Upsert{
		{TeacherID: s.teachers[0].ID, Date: date("2024-01-08"), Status: models.Present, Hours: floatPtr(30), WeekID: s.window.WeekID},
		{TeacherID: s.teachers[0].ID, Date: date("2024-01-08"), Status: models.Present, ClockIn: "7am", WeekID: s.window.WeekID},
		{TeacherID: s.teachers[0].ID, Date: date("2024-01-08"), Status: models.Present},
	}
	for _, w := range bad {
		_, err := s.rec.Persist(s.ctx, []attendance.Upsert{w})
		s.True(attendance.IsValidation(err), "%+v", w)
	}
	s.Equal(0, s.store.AttendanceCount(""))
}

func (s *ReconcilerSuite) TestSaveAfterTeacherDeleted() {
	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	edited := s.edit(original, 0, "2024-01-08", attendance.FieldStatus, "present")

	gone := s.teachers[0].ID
	s.Require().NoError(attendance.NewTeachers(s.store).Delete(s.ctx, gone))

	out, err := s.rec.Save(s.ctx, original, edited, s.window)

	var pe *attendance.PersistenceError
	s.Require().ErrorAs(err, &pe)
	s.True(attendance.IsNotFound(err))
	s.Empty(out.Applied)
	s.Len(out.Pending, 1)
	s.Equal(0, s.store.AttendanceCount(gone))
	s.Equal(0, s.store.AttendanceCount(""))
}

func (s *ReconcilerSuite) TestSaveLegacyUnsetRow() {
	teacher := s.teachers[1].ID
	s.Require().NoError(s.store.MemoryStore.UpsertAttendance(s.ctx, models.TeacherAttendance{
		TeacherID: teacher, Date: date("2024-01-11"), Status: "", WeekID: s.window.WeekID,
	}))

	_, original, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	c, _ := original.Cell(teacher, "2024-01-11")
	s.Require().Equal(models.Unset, c.Status)

	edited := s.edit(original, 1, "2024-01-11", attendance.FieldClockOut, "14:00")
	_, err = s.rec.Save(s.ctx, original, edited, s.window)
	s.Require().NoError(err)

	_, reloaded, err := s.rec.Load(s.ctx, s.window)
	s.Require().NoError(err)
	s.True(edited.Equal(reloaded))
	c, _ = reloaded.Cell(teacher, "2024-01-11")
	s.Equal(models.Absent, c.Status)
	s.Equal("14:00", c.ClockOut)
	s.Equal(1, s.store.AttendanceCount(teacher))
}

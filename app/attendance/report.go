package attendance

import (
	"fmt"
	"strings"

	"soofia-clockbook/app/models"
)

// Fixed leading columns of a pivot table.
const (
	ColumnTeacher = "Teacher"
	ColumnSubject = "Subject"
)

// PivotSlot is one read-only time-slot row shown under a day.
type PivotSlot struct {
	TimeSlot string                  `json:"time_slot"`
	Status   models.AttendanceStatus `json:"status"`
	Text     string                  `json:"text"`
}

// PivotCell is one rendered day of one teacher.
type PivotCell struct {
	Date   string                  `json:"date"`
	Status models.AttendanceStatus `json:"status"`
	Hours  *float64                `json:"hours,omitempty"`
	Text   string                  `json:"text"`
	Slots  []PivotSlot             `json:"slots,omitempty"`
}

// PivotRow is one teacher's week.
type PivotRow struct {
	TeacherID string      `json:"teacher_id"`
	Teacher   string      `json:"teacher"`
	Subject   string      `json:"subject"`
	Cells     []PivotCell `json:"cells"`
}

// PivotTable is the teacher x day projection consumed by report renderers.
type PivotTable struct {
	WeekID  string     `json:"week_id"`
	Range   string     `json:"range"`
	Columns []string   `json:"columns"`
	Dates   []string   `json:"dates"`
	Rows    []PivotRow `json:"rows"`
}

// Project shapes the grid into a pivot table with one row per teacher, in
// roster order. An empty roster yields the header and no rows.
func Project(teachers []models.Teacher, window WeekWindow, grid Grid) PivotTable {
	table := PivotTable{
		WeekID:  window.WeekID,
		Range:   strings.Replace(window.WeekID, weekIDSeparator, " to ", 1),
		Columns: make([]string, 0, 2+len(window.Days)),
		Dates:   window.DayKeys(),
		Rows:    make([]PivotRow, 0, len(teachers)),
	}
	table.Columns = append(table.Columns, ColumnTeacher, ColumnSubject)
	for _, d := range window.Days {
		table.Columns = append(table.Columns, d.Format("Mon"))
	}

	for i := range teachers {
		t := &teachers[i]
		row := PivotRow{
			TeacherID: t.ID,
			Teacher:   t.DisplayName(),
			Subject:   t.SubjectOrDash(),
			Cells:     make([]PivotCell, 0, len(table.Dates)),
		}
		for _, date := range table.Dates {
			cell, ok := grid.Cell(t.ID, date)
			if !ok {
				cell = DefaultCell()
			}
			pc := PivotCell{
				Date:   date,
				Status: cell.Status,
				Hours:  cell.Hours,
				Text:   FormatCell(cell),
			}
			for _, slot := range grid.Slots(t.ID, date) {
				pc.Slots = append(pc.Slots, PivotSlot{
					TimeSlot: slot.TimeSlot,
					Status:   slot.Status,
					Text:     slot.TimeSlot + ": " + FormatCell(slot.Cell),
				})
			}
			row.Cells = append(row.Cells, pc)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// FormatCell renders a cell as "STATUS (In: HH:MM Out: HH:MM)", with "-" for missing times.
func FormatCell(c Cell) string {
	return fmt.Sprintf("%s (In: %s Out: %s)", strings.ToUpper(string(c.Status)), orDash(c.ClockIn), orDash(c.ClockOut))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package attendance

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"soofia-clockbook/app/models"
)

// Key addresses one cell of a grid.
type Key struct {
	TeacherID string
	Date      string
}

// KeyOf builds the key for a teacher on a calendar day.
func KeyOf(teacherID string, date time.Time) Key {
	return Key{TeacherID: teacherID, Date: FormatDate(date)}
}

// Cell is the editable state of one teacher on one day.
type Cell struct {
	Status   models.AttendanceStatus `json:"status"`
	ClockIn  string                  `json:"clock_in"`
	ClockOut string                  `json:"clock_out"`
	Hours    *float64                `json:"hours"`
}

// DefaultCell is the value of a cell with no persisted record.
func DefaultCell() Cell {
	return Cell{Status: models.DefaultStatus}
}

func cellFromRecord(rec models.TeacherAttendance) Cell {
	c := Cell{
		Status:   models.ParseStatus(string(rec.Status)),
		ClockIn:  rec.ClockIn,
		ClockOut: rec.ClockOut,
	}
	if rec.Hours != nil {
		h := *rec.Hours
		c.Hours = &h
	}
	return c
}

// Equal compares cells by value, including the hours they point at.
func (c Cell) Equal(o Cell) bool {
	if c.Status != o.Status || c.ClockIn != o.ClockIn || c.ClockOut != o.ClockOut {
		return false
	}
	if c.Hours == nil || o.Hours == nil {
		return c.Hours == nil && o.Hours == nil
	}
	return *c.Hours == *o.Hours
}

func (c Cell) clone() Cell {
	if c.Hours != nil {
		h := *c.Hours
		c.Hours = &h
	}
	return c
}

// Grid covers every (teacher, day) pair of a roster and a week window.
// A Grid is a value: every mutation returns a new Grid.
type Grid struct {
	WeekID     string
	TeacherIDs []string
	Dates      []string
	cells      map[Key]Cell
	slots      map[Key][]Slot
}

// Slot is a read-only time-slot row kept alongside a day cell.
type Slot struct {
	TimeSlot string `json:"time_slot"`
	Cell
}

// BuildGrid merges the roster, the window and the persisted rows into a full
// grid. Rows for unknown teachers or days outside the window are ignored.
// The slot-less row of a day is its cell; slotted rows are kept read-only
// and only summarise the day when it has no slot-less row.
func BuildGrid(teachers []models.Teacher, window WeekWindow, persisted []models.TeacherAttendance) Grid {
	index := make(map[Key]models.TeacherAttendance, len(persisted))
	slots := make(map[Key][]Slot)
	for _, rec := range persisted {
		k := KeyOf(rec.TeacherID, rec.Date)
		if rec.TimeSlot != "" {
			slots[k] = append(slots[k], Slot{TimeSlot: rec.TimeSlot, Cell: cellFromRecord(rec)})
			continue
		}
		index[k] = rec
	}

	g := Grid{
		WeekID:     window.WeekID,
		TeacherIDs: make([]string, 0, len(teachers)),
		Dates:      window.DayKeys(),
		cells:      make(map[Key]Cell, len(teachers)*len(window.Days)),
		slots:      make(map[Key][]Slot),
	}
	for _, t := range teachers {
		g.TeacherIDs = append(g.TeacherIDs, t.ID)
		for _, date := range g.Dates {
			k := Key{TeacherID: t.ID, Date: date}
			if s, ok := slots[k]; ok {
				sortSlots(s)
				g.slots[k] = s
			}
			if rec, ok := index[k]; ok {
				g.cells[k] = cellFromRecord(rec)
				continue
			}
			if s, ok := g.slots[k]; ok {
				g.cells[k] = summarise(s)
				continue
			}
			g.cells[k] = DefaultCell()
		}
	}
	return g
}

// summarise folds a day's slots into one cell: present if any slot is present,
// otherwise the status of the earliest slot. Times and hours stay blank.
func summarise(slots []Slot) Cell {
	c := Cell{Status: slots[0].Status}
	for _, s := range slots {
		if s.Status == models.Present {
			c.Status = models.Present
			break
		}
	}
	if c.Status == models.Unset {
		c.Status = models.DefaultStatus
	}
	return c
}

var slotLayouts = []string{"3:04 PM", "3:04PM", "15:04"}

func slotMinutes(slot string) (int, bool) {
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(slot)); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

// sortSlots orders slots by time of day; labels that are not times sort last.
func sortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		mi, okI := slotMinutes(slots[i].TimeSlot)
		mj, okJ := slotMinutes(slots[j].TimeSlot)
		if okI != okJ {
			return okI
		}
		if okI && mi != mj {
			return mi < mj
		}
		return slots[i].TimeSlot < slots[j].TimeSlot
	})
}

// Cell returns the cell of teacherID on date.
func (g Grid) Cell(teacherID, date string) (Cell, bool) {
	c, ok := g.cells[Key{TeacherID: teacherID, Date: date}]
	return c, ok
}

// Slots returns the read-only time-slot rows of teacherID on date, ordered by time.
func (g Grid) Slots(teacherID, date string) []Slot {
	return g.slots[Key{TeacherID: teacherID, Date: date}]
}

// Len is the number of cells.
func (g Grid) Len() int {
	return len(g.cells)
}

// Keys lists the cells in roster order, then day order.
func (g Grid) Keys() []Key {
	keys := make([]Key, 0, len(g.cells))
	for _, t := range g.TeacherIDs {
		for _, d := range g.Dates {
			k := Key{TeacherID: t, Date: d}
			if _, ok := g.cells[k]; ok {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	out := Grid{
		WeekID:     g.WeekID,
		TeacherIDs: append([]string(nil), g.TeacherIDs...),
		Dates:      append([]string(nil), g.Dates...),
		cells:      make(map[Key]Cell, len(g.cells)),
		slots:      make(map[Key][]Slot, len(g.slots)),
	}
	for k, c := range g.cells {
		out.cells[k] = c.clone()
	}
	for k, s := range g.slots {
		cp := make([]Slot, len(s))
		for i := range s {
			cp[i] = Slot{TimeSlot: s[i].TimeSlot, Cell: s[i].Cell.clone()}
		}
		out.slots[k] = cp
	}
	return out
}

// Equal reports whether both grids cover the same keys with equal cells.
// Slots are not compared since they are never edited.
func (g Grid) Equal(o Grid) bool {
	if g.WeekID != o.WeekID || len(g.cells) != len(o.cells) {
		return false
	}
	for k, c := range g.cells {
		oc, ok := o.cells[k]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

func (g Grid) with(k Key, c Cell) Grid {
	out := g.Clone()
	out.cells[k] = c
	return out
}

// ByTeacher groups the cells as teacher id -> date -> cell.
func (g Grid) ByTeacher() map[string]map[string]Cell {
	out := make(map[string]map[string]Cell, len(g.TeacherIDs))
	for k, c := range g.cells {
		row, ok := out[k.TeacherID]
		if !ok {
			row = make(map[string]Cell, len(g.Dates))
			out[k.TeacherID] = row
		}
		row[k.Date] = c
	}
	return out
}

func (g Grid) slotsByTeacher() map[string]map[string][]Slot {
	if len(g.slots) == 0 {
		return nil
	}
	out := make(map[string]map[string][]Slot)
	for k, s := range g.slots {
		if out[k.TeacherID] == nil {
			out[k.TeacherID] = make(map[string][]Slot)
		}
		out[k.TeacherID][k.Date] = s
	}
	return out
}

func (g Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		WeekID string                       `json:"week_id"`
		Dates  []string                     `json:"dates"`
		Cells  map[string]map[string]Cell   `json:"cells"`
		Slots  map[string]map[string][]Slot `json:"slots,omitempty"`
	}{
		WeekID: g.WeekID,
		Dates:  g.Dates,
		Cells:  g.ByTeacher(),
		Slots:  g.slotsByTeacher(),
	})
}

package attendance

import (
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar-date form used for keys and week ids.
	DateLayout = "2006-01-02"

	weekIDSeparator = "_to_"
	daysPerWeek     = 5
)

// WeekWindow is the Monday to Friday range that attendance is tracked in.
type WeekWindow struct {
	WeekID    string      `json:"week_id"`
	StartDate time.Time   `json:"start_date"`
	EndDate   time.Time   `json:"end_date"`
	Days      []time.Time `json:"days"`
}

// CivilDate drops the clock and zone of t, keeping its calendar day as UTC midnight.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD, got " + s}
	}
	return t, nil
}

// ComputeWeek returns the window whose Monday is on or before referenceDate.
func ComputeWeek(referenceDate time.Time) WeekWindow {
	day := CivilDate(referenceDate)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)

	days := make([]time.Time, daysPerWeek)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	end := days[daysPerWeek-1]

	return WeekWindow{
		WeekID:    FormatDate(start) + weekIDSeparator + FormatDate(end),
		StartDate: start,
		EndDate:   end,
		Days:      days,
	}
}

// ShiftWeek moves the window by deltaWeeks whole weeks.
func ShiftWeek(w WeekWindow, deltaWeeks int) WeekWindow {
	return ComputeWeek(w.StartDate.AddDate(0, 0, 7*deltaWeeks))
}

// ParseWeekID rebuilds the window a week id was derived from.
func ParseWeekID(id string) (WeekWindow, error) {
	parts := strings.Split(id, weekIDSeparator)
	if len(parts) != 2 {
		return WeekWindow{}, &ValidationError{Field: "week_id", Message: "expected <start>_to_<end>, got " + id}
	}
	start, err := time.Parse(DateLayout, parts[0])
	if err != nil {
		return WeekWindow{}, &ValidationError{Field: "week_id", Message: "bad start date " + parts[0]}
	}
	end, err := time.Parse(DateLayout, parts[1])
	if err != nil {
		return WeekWindow{}, &ValidationError{Field: "week_id", Message: "bad end date " + parts[1]}
	}
	if start.Weekday() != time.Monday {
		return WeekWindow{}, &ValidationError{Field: "week_id", Message: parts[0] + " is not a Monday"}
	}
	if !end.Equal(start.AddDate(0, 0, daysPerWeek-1)) {
		return WeekWindow{}, &ValidationError{Field: "week_id", Message: parts[1] + " is not the Friday of that week"}
	}
	return ComputeWeek(start), nil
}

// Contains reports whether the calendar day of t is one of the window's days.
func (w WeekWindow) Contains(t time.Time) bool {
	day := CivilDate(t)
	return !day.Before(w.StartDate) && !day.After(w.EndDate)
}

// DayKeys returns the window's days as YYYY-MM-DD strings.
func (w WeekWindow) DayKeys() []string {
	keys := make([]string, len(w.Days))
	for i, d := range w.Days {
		keys[i] = FormatDate(d)
	}
	return keys
}

func (w WeekWindow) String() string {
	return "Week of " + w.StartDate.Format("Jan 02") + " - " + w.EndDate.Format("Jan 02, 2006")
}

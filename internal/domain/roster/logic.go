package roster

import (
	"strings"
	"time"
)

// ParseWeekdays accepts short or long English day names, case-insensitive, and "all".
func ParseWeekdays(names []string) (Weekdays, error) {
	var mask Weekdays
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "all" {
			mask |= AllWeek
			continue
		}
		found := false
		for i, short := range weekdayNames {
			if name == short || (isDayName(name) && strings.HasPrefix(name, short)) {
				mask |= 1 << i
				found = true
				break
			}
		}
		if !found {
			return 0, invalid("weekdays", "unknown day "+raw)
		}
	}
	if mask == 0 {
		return 0, invalid("weekdays", "at least one day is required")
	}
	return mask, nil
}

func isDayName(name string) bool {
	switch name {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

// Has reports whether the mask covers the given calendar weekday.
func (w Weekdays) Has(day time.Weekday) bool {
	return w&weekdayBit(day) != 0
}

func (w Weekdays) Names() []string {
	var out []string
	for i, name := range weekdayNames {
		if w&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return out
}

func weekdayBit(day time.Weekday) Weekdays {
	// time.Weekday is Sunday-first
	return 1 << ((int(day) + 6) % 7)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Covers reports whether the assignment posts the employee on the given day.
func (a WeeklyAssignment) Covers(day time.Time) bool {
	day = DateOnly(day)
	if day.Before(DateOnly(a.StartDate)) {
		return false
	}
	if a.EndDate != nil && day.After(DateOnly(*a.EndDate)) {
		return false
	}
	return a.Weekdays.Has(day.Weekday())
}

// Overlaps reports whether two assignments of the same employee would post them on the
// same day: their date ranges intersect and share at least one weekday inside the
// intersection.
func Overlaps(a, b WeeklyAssignment) bool {
	if a.EmployeeID != b.EmployeeID || a.Weekdays&b.Weekdays == 0 {
		return false
	}
	start := DateOnly(a.StartDate)
	if s := DateOnly(b.StartDate); s.After(start) {
		start = s
	}
	var end *time.Time
	for _, e := range []*time.Time{a.EndDate, b.EndDate} {
		if e == nil {
			continue
		}
		d := DateOnly(*e)
		if end == nil || d.Before(*end) {
			end = &d
		}
	}
	if end != nil && end.Before(start) {
		return false
	}
	common := a.Weekdays & b.Weekdays
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		if end != nil && day.After(*end) {
			return false
		}
		if common.Has(day.Weekday()) {
			return true
		}
	}
	return false
}

// BuildWeek lays out the Monday-to-Sunday week containing date.
func BuildWeek(employeeID string, date time.Time, assignments []WeeklyAssignment) WeekSchedule {
	date = DateOnly(date)
	monday := date.AddDate(0, 0, -((int(date.Weekday()) + 6) % 7))
	week := WeekSchedule{
		EmployeeID: employeeID,
		WeekStart:  monday.Format(dateLayout),
		WeekEnd:    monday.AddDate(0, 0, 6).Format(dateLayout),
		Days:       []DaySlot{},
	}
	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		for _, a := range assignments {
			if a.EmployeeID != employeeID || !a.Covers(day) {
				continue
			}
			week.Days = append(week.Days, DaySlot{
				Date:         day.Format(dateLayout),
				Weekday:      weekdayNames[i],
				Site:         a.Site,
				AssignmentID: a.ID,
			})
		}
	}
	return week
}

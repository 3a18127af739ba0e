package shared

import "time"

// ParseDate reads a calendar date as UTC midnight. YYYY-MM-DD is the canonical form; an
// RFC3339 timestamp is cut to its UTC day.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		stamp, stampErr := time.Parse(time.RFC3339, value)
		if stampErr != nil {
			return time.Time{}, err
		}
		parsed = stamp.UTC()
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}

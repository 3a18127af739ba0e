package roster

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Weekdays is a Monday-first bitmask: bit 0 is Monday, bit 6 is Sunday.
type Weekdays uint8

const (
	Monday Weekdays = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	AllWeek Weekdays = 1<<7 - 1
)

var weekdayNames = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

const dateLayout = "2006-01-02"

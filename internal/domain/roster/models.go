package roster

import (
	"time"
)

// WeeklyAssignment posts one employee to one site on a fixed set of weekdays, from
// StartDate until EndDate inclusive. A nil EndDate is open-ended.
type WeeklyAssignment struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID string     `gorm:"size:36;not null;index" json:"employeeId"`
	Site       string     `gorm:"size:120;not null" json:"site"`
	Weekdays   Weekdays   `gorm:"not null" json:"weekdays"`
	StartDate  time.Time  `gorm:"not null" json:"startDate"`
	EndDate    *time.Time `json:"endDate,omitempty"`
	Status     string     `gorm:"size:16;not null;index" json:"status"`
	Note       string     `gorm:"size:255" json:"note"`
	CreatedBy  string     `gorm:"size:36" json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (WeeklyAssignment) TableName() string { return "roster_assignments" }

type NewAssignment struct {
	EmployeeID string
	Site       string
	Weekdays   []string
	StartDate  time.Time
	EndDate    *time.Time
	Note       string
}

type Filter struct {
	EmployeeID string
	Site       string
	Status     string
}

// DaySlot is one posted day of a week schedule.
type DaySlot struct {
	Date         string `json:"date"`
	Weekday      string `json:"weekday"`
	Site         string `json:"site"`
	AssignmentID string `json:"assignmentId"`
}

type WeekSchedule struct {
	EmployeeID string    `json:"employeeId"`
	WeekStart  string    `json:"weekStart"`
	WeekEnd    string    `json:"weekEnd"`
	Days       []DaySlot `json:"days"`
}

package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	Matricule  string          `gorm:"size:32;not null;uniqueIndex" json:"matricule"`
	FirstName  string          `gorm:"size:100;not null" json:"firstName"`
	LastName   string          `gorm:"size:100;not null" json:"lastName"`
	Category   string          `gorm:"size:16;not null" json:"category"`
	PayMode    string          `gorm:"size:16;not null" json:"payMode"`
	BaseSalary decimal.Decimal `gorm:"type:numeric(18,2)" json:"baseSalary"`
	DailyRate  decimal.Decimal `gorm:"type:numeric(18,2)" json:"dailyRate"`
	Status     string          `gorm:"size:16;not null;index" json:"status"`
	HireDate   *time.Time      `json:"hireDate,omitempty"`
	Phone      string          `gorm:"size:32" json:"phone"`
	NationalID string          `gorm:"size:255" json:"nationalId,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Attendance is the days-worked count of one employee for one calendar month.
type Attendance struct {
	EmployeeID string          `gorm:"primaryKey;size:36" json:"employeeId"`
	Year       int             `gorm:"primaryKey" json:"year"`
	Month      int             `gorm:"primaryKey" json:"month"`
	DaysWorked decimal.Decimal `gorm:"type:numeric(6,2)" json:"daysWorked"`
	Source     string          `gorm:"size:16" json:"source"`
	UpdatedBy  string          `gorm:"size:36" json:"updatedBy"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (Attendance) TableName() string { return "attendance" }

type EmergencyContact struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	EmployeeID   string    `gorm:"size:36;not null;index" json:"employeeId"`
	FullName     string    `gorm:"size:200;not null" json:"fullName"`
	Relationship string    `gorm:"size:64;not null" json:"relationship"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Address      string    `gorm:"size:255" json:"address"`
	IsPrimary    bool      `json:"isPrimary"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (EmergencyContact) TableName() string { return "employee_emergency_contacts" }

type EmployeeFilter struct {
	Status   string
	Category string
	Search   string
}

// ImportRowError reports one rejected line of an attendance sheet. Row is 1-based as
// shown in a spreadsheet.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// DaysInMonth is the calendar length of a month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

package core

const (
	CategoryGuard      = "guard"
	CategoryRoteur     = "roteur"
	CategorySupervisor = "supervisor"
	CategoryStaff      = "staff"
)

const (
	PayModeMonthly = "MONTHLY"
	PayModeDaily   = "DAILY"
)

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusSuspended  = "suspended"
	EmployeeStatusTerminated = "terminated"
)

const (
	AttendanceSourceManual = "manual"
	AttendanceSourceImport = "import"
)

var validCategories = map[string]bool{
	CategoryGuard:      true,
	CategoryRoteur:     true,
	CategorySupervisor: true,
	CategoryStaff:      true,
}

var validStatuses = map[string]bool{
	EmployeeStatusActive:     true,
	EmployeeStatusSuspended:  true,
	EmployeeStatusTerminated: true,
}

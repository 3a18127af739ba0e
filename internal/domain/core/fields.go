package core

import (
	"github.com/shopspring/decimal"

	"guardhr/internal/domain/auth"
)

// FilterEmployeeFields strips what a role may not read. Admin and HR see the whole
// record, the accountant sees pay but not identity documents, viewers see neither.
func FilterEmployeeFields(emp *Employee, role string) {
	switch role {
	case auth.RoleAdmin, auth.RoleHR:
		return
	case auth.RoleAccountant:
		emp.NationalID = ""
		return
	}
	emp.NationalID = ""
	emp.Phone = ""
	emp.BaseSalary = decimal.Zero
	emp.DailyRate = decimal.Zero
}

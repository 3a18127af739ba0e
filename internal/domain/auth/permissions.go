package auth

const (
	PermEmployeesRead   = "core.employees.read"
	PermEmployeesWrite  = "core.employees.write"
	PermAttendanceWrite = "core.attendance.write"
	PermPayrollRead     = "payroll.read"
	PermPayrollWrite    = "payroll.write"
	PermPayrollRun      = "payroll.run"
	PermPayrollValidate = "payroll.validate"
	PermPayrollLock     = "payroll.lock"
	PermPayrollConfig   = "payroll.config"
	PermDeductionsWrite = "payroll.deductions.write"
	PermPayrollExport   = "payroll.export"
	PermRosterRead      = "roster.read"
	PermRosterWrite     = "roster.write"
	PermAuditRead       = "audit.read"
	PermOperatorsManage = "admin.operators"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermAttendanceWrite,
	PermPayrollRead,
	PermPayrollWrite,
	PermPayrollRun,
	PermPayrollValidate,
	PermPayrollLock,
	PermPayrollConfig,
	PermDeductionsWrite,
	PermPayrollExport,
	PermRosterRead,
	PermRosterWrite,
	PermAuditRead,
	PermOperatorsManage,
}

// RolePermissions is the fixed role model of the back office. Admin holds every
// permission.
var RolePermissions = map[string][]string{
	RoleAdmin: DefaultPermissions,
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermAttendanceWrite,
		PermPayrollRead,
		PermPayrollWrite,
		PermDeductionsWrite,
		PermRosterRead,
		PermRosterWrite,
		PermAuditRead,
	},
	RoleAccountant: {
		PermEmployeesRead,
		PermPayrollRead,
		PermPayrollWrite,
		PermPayrollRun,
		PermPayrollValidate,
		PermPayrollLock,
		PermPayrollConfig,
		PermDeductionsWrite,
		PermPayrollExport,
		PermRosterRead,
		PermAuditRead,
	},
	RoleViewer: {
		PermEmployeesRead,
		PermPayrollRead,
		PermRosterRead,
	},
}

var rolePermissionSet = func() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		out[role] = set
	}
	return out
}()

func RoleHasPermission(role, permission string) bool {
	_, ok := rolePermissionSet[role][permission]
	return ok
}

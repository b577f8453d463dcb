package library

// Operation names a mutation that requires a minimum role. The ledger and
// store know nothing about roles; every role check funnels through
// Allowed before a Manager mutation, instead of being scattered across
// presentation code.
type Operation string

const (
	OpAddStudent     Operation = "add_student"
	OpDeleteStudent  Operation = "delete_student"
	OpAddBook        Operation = "add_book"
	OpDeleteBook     Operation = "delete_book"
	OpManageUsers    Operation = "manage_users"
	OpChangeSettings Operation = "change_settings"
	OpRestoreBackup  Operation = "restore_backup"
)

// rolePolicy lists which roles may perform each guarded operation.
// Operations absent from the table are open to every authenticated user.
var rolePolicy = map[Operation][]Role{
	OpDeleteStudent:  {RoleAdmin, RoleLibrarian},
	OpAddBook:        {RoleAdmin, RoleLibrarian},
	OpDeleteBook:     {RoleAdmin},
	OpManageUsers:    {RoleAdmin},
	OpChangeSettings: {RoleAdmin},
	OpRestoreBackup:  {RoleAdmin},
}

// Allowed reports whether role may perform op.
func Allowed(op Operation, role Role) bool {
	allowed, guarded := rolePolicy[op]
	if !guarded {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

package library

import "testing"

func TestAllowed(t *testing.T) {
	cases := []struct {
		op   Operation
		role Role
		want bool
	}{
		{OpAddStudent, RoleAssistant, true},
		{OpAddStudent, RoleLibrarian, true},
		{OpDeleteStudent, RoleAdmin, true},
		{OpDeleteStudent, RoleLibrarian, true},
		{OpDeleteStudent, RoleAssistant, false},
		{OpAddBook, RoleAdmin, true},
		{OpAddBook, RoleLibrarian, true},
		{OpAddBook, RoleAssistant, false},
		{OpDeleteBook, RoleAdmin, true},
		{OpDeleteBook, RoleLibrarian, false},
		{OpManageUsers, RoleAdmin, true},
		{OpManageUsers, RoleLibrarian, false},
		{OpChangeSettings, RoleAdmin, true},
		{OpChangeSettings, RoleAssistant, false},
		{OpRestoreBackup, RoleAdmin, true},
		{OpRestoreBackup, RoleLibrarian, false},
	}
	for _, c := range cases {
		if got := Allowed(c.op, c.role); got != c.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", c.op, c.role, got, c.want)
		}
	}
}

func TestAllowedUnknownOperationIsOpen(t *testing.T) {
	if !Allowed(Operation("search_student"), RoleAssistant) {
		t.Fatal("unguarded operations must be open to every role")
	}
}

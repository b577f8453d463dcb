package library

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("open manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func registerSchool(t *testing.T, m *Manager) *School {
	t.Helper()
	sch, err := m.RegisterSchool(RegisterSchoolParams{
		Name:            "Oakview Primary",
		Password:        "secret",
		FinePerDay:      10,
		DefaultLoanDays: 14,
	})
	if err != nil {
		t.Fatalf("register school: %v", err)
	}
	return sch
}

func TestRegisterSchoolSeedsDefaultAdmin(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	u, err := m.UserLogin(sch.ID, "admin", "admin")
	if err != nil {
		t.Fatalf("default admin login: %v", err)
	}
	if u.Role != RoleAdmin {
		t.Fatalf("default account role = %s, want %s", u.Role, RoleAdmin)
	}
}

func TestRegisterSchoolValidation(t *testing.T) {
	m := tempManager(t)

	cases := []RegisterSchoolParams{
		{Name: "", Password: "pw", FinePerDay: 10, DefaultLoanDays: 14},
		{Name: "X", Password: "", FinePerDay: 10, DefaultLoanDays: 14},
		{Name: "X", Password: "pw", FinePerDay: -1, DefaultLoanDays: 14},
		{Name: "X", Password: "pw", FinePerDay: 10, DefaultLoanDays: 0},
	}
	for i, p := range cases {
		if _, err := m.RegisterSchool(p); err == nil {
			t.Errorf("case %d: invalid registration accepted: %+v", i, p)
		}
	}
}

func TestSchoolLogin(t *testing.T) {
	m := tempManager(t)
	registerSchool(t, m)

	if _, err := m.SchoolLogin("Oakview Primary", "secret"); err != nil {
		t.Fatalf("valid login: %v", err)
	}
	if _, err := m.SchoolLogin("Oakview Primary", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := m.SchoolLogin("Nowhere", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown school: want ErrInvalidCredentials, got %v", err)
	}
}

func TestCreateUserAndLogin(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	if _, err := m.CreateUser(RoleLibrarian, sch.ID, "mary", "pw", RoleLibrarian); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-admin created user: %v", err)
	}
	if _, err := m.CreateUser(RoleAdmin, sch.ID, "mary", "", RoleLibrarian); err == nil {
		t.Fatal("empty password accepted")
	}

	if _, err := m.CreateUser(RoleAdmin, sch.ID, "mary", "pw", RoleLibrarian); err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err := m.UserLogin(sch.ID, "mary", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Role != RoleLibrarian {
		t.Fatalf("role = %s, want %s", u.Role, RoleLibrarian)
	}
	if _, err := m.UserLogin(sch.ID, "mary", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: want ErrInvalidCredentials, got %v", err)
	}

	if err := m.DeleteUser(RoleAssistant, sch.ID, "mary"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-admin deleted user: %v", err)
	}
	if err := m.DeleteUser(RoleAdmin, sch.ID, "mary"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := m.UserLogin(sch.ID, "mary", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deleted user logged in: %v", err)
	}
}

func TestAddBookPolicyAndValidation(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	p := AddBookParams{Title: "Atlas", Barcode: "B1"}
	if _, err := m.AddBook(RoleAssistant, sch.ID, p); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("assistant added book: %v", err)
	}
	if _, err := m.AddBook(RoleLibrarian, sch.ID, AddBookParams{Title: "Atlas", Barcode: "B2", Condition: "Pristine"}); err == nil {
		t.Fatal("unknown condition accepted")
	}
	if _, err := m.AddBook(RoleLibrarian, sch.ID, p); err != nil {
		t.Fatalf("librarian add book: %v", err)
	}
	b, err := m.FindBook(sch.ID, "B1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if b.Condition != "Good" {
		t.Fatalf("default condition = %q, want Good", b.Condition)
	}
}

func TestDeleteGuards(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	if _, err := m.AddStudent(sch.ID, AddStudentParams{AdmissionNo: "A100", Name: "Jane"}); err != nil {
		t.Fatalf("add student: %v", err)
	}
	if _, err := m.AddBook(RoleAdmin, sch.ID, AddBookParams{Title: "Atlas", Barcode: "B1"}); err != nil {
		t.Fatalf("add book: %v", err)
	}
	if _, err := m.BorrowByBarcode(sch.ID, "A100", "B1", 0); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if err := m.DeleteStudent(RoleAssistant, sch.ID, "A100"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("assistant deleted student: %v", err)
	}
	if err := m.DeleteStudent(RoleLibrarian, sch.ID, "A100"); !errors.Is(err, ErrHasActiveLoans) {
		t.Fatalf("student with active loan deleted: %v", err)
	}
	if err := m.DeleteBook(RoleLibrarian, sch.ID, "B1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("librarian deleted book: %v", err)
	}
	if err := m.DeleteBook(RoleAdmin, sch.ID, "B1"); !errors.Is(err, ErrHasActiveLoans) {
		t.Fatalf("book with active loan deleted: %v", err)
	}

	if _, err := m.ReturnByBarcode(sch.ID, "B1"); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := m.DeleteStudent(RoleLibrarian, sch.ID, "A100"); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if err := m.DeleteBook(RoleAdmin, sch.ID, "B1"); err != nil {
		t.Fatalf("delete book after return: %v", err)
	}

	entries, err := m.RecentDeletions(sch.ID, 0)
	if err != nil {
		t.Fatalf("recent deletions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 undo entries, got %d", len(entries))
	}
}

func TestBorrowByBarcodeRejectsNonCirculating(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	m.AddStudent(sch.ID, AddStudentParams{AdmissionNo: "A100", Name: "Jane"})
	m.AddBook(RoleAdmin, sch.ID, AddBookParams{Title: "Reference Atlas", Barcode: "R1", NonCirculating: true})

	if _, err := m.BorrowByBarcode(sch.ID, "A100", "R1", 0); !errors.Is(err, ErrNonCirculating) {
		t.Fatalf("want ErrNonCirculating, got %v", err)
	}
}

func TestBorrowByBarcodeUnknownParties(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)
	m.AddStudent(sch.ID, AddStudentParams{AdmissionNo: "A100", Name: "Jane"})

	if _, err := m.BorrowByBarcode(sch.ID, "A100", "NOPE", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown book: want ErrNotFound, got %v", err)
	}
	if _, err := m.BorrowByBarcode(sch.ID, "NOPE", "B1", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown student: want ErrNotFound, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	if err := m.UpdateSettings(RoleLibrarian, sch.ID, 25, 7); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-admin changed settings: %v", err)
	}
	if err := m.UpdateSettings(RoleAdmin, sch.ID, 25, 0); err == nil {
		t.Fatal("zero loan days accepted")
	}
	if err := m.UpdateSettings(RoleAdmin, sch.ID, -1, 7); err == nil {
		t.Fatal("negative fine accepted")
	}
	if err := m.UpdateSettings(RoleAdmin, sch.ID, 25, 7); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := m.GetSchoolByID(sch.ID)
	if got.FinePerDay != 25 || got.DefaultLoanDays != 7 {
		t.Fatalf("settings not applied: %+v", got)
	}
}

func TestLicenseLifecycle(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)

	if got := m.LicenseStatus(sch.Name); got != "Not activated" {
		t.Fatalf("fresh status = %q", got)
	}

	licPath := filepath.Join(t.TempDir(), "issued.json")
	if err := WriteLicenseFile(licPath, SignLicense(sch.Name)); err != nil {
		t.Fatalf("write license: %v", err)
	}
	if err := m.ActivateLicense(licPath, sch.Name); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := m.LicenseStatus(sch.Name); got != "Valid" {
		t.Fatalf("status after activation = %q", got)
	}

	wrong := filepath.Join(t.TempDir(), "wrong.json")
	WriteLicenseFile(wrong, SignLicense("Hillcrest Academy"))
	if err := m.ActivateLicense(wrong, sch.Name); err == nil {
		t.Fatal("license for another school activated")
	}
}

func TestBackupAndRestore(t *testing.T) {
	m := tempManager(t)
	sch := registerSchool(t, m)
	m.AddStudent(sch.ID, AddStudentParams{AdmissionNo: "A100", Name: "Jane"})

	backup := filepath.Join(t.TempDir(), "backup.db")
	if err := m.ExportBackup(backup); err != nil {
		t.Fatalf("export: %v", err)
	}

	// Mutate after the snapshot, then roll back to it.
	m.AddStudent(sch.ID, AddStudentParams{AdmissionNo: "A200", Name: "Tom"})

	if err := m.RestoreBackup(RoleLibrarian, backup); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("non-admin restored backup: %v", err)
	}
	if err := m.RestoreBackup(RoleAdmin, backup); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if _, err := m.FindStudent(sch.ID, "A100"); err != nil {
		t.Fatalf("pre-snapshot student missing after restore: %v", err)
	}
	if _, err := m.FindStudent(sch.ID, "A200"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("post-snapshot student survived restore: %v", err)
	}
}

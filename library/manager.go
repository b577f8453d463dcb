package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// File names kept inside the data directory.
const (
	dbFileName      = "library.db"
	draftsFileName  = "drafts.json"
	licenseFileName = "license.json"
)

// Manager is the façade the presentation layer talks to. It owns the
// rules the store does not: role policy, deletion guards, credential
// hashing, input validation, and the non-circulating filter in front of
// the loan ledger.
type Manager struct {
	store       *Store
	drafts      *Drafts
	validate    *validator.Validate
	licensePath string
}

// NewManager opens (or creates) the store and sidecar files under dataDir.
func NewManager(dataDir string) (*Manager, error) {
	store, err := OpenStore(filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:       store,
		drafts:      NewDrafts(filepath.Join(dataDir, draftsFileName)),
		validate:    validator.New(),
		licensePath: filepath.Join(dataDir, licenseFileName),
	}, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error { return m.store.Close() }

// ------------------ Registration & login ------------------

// RegisterSchoolParams carries the registration form.
type RegisterSchoolParams struct {
	Name            string `validate:"required"`
	Password        string `validate:"required"`
	FinePerDay      int64  `validate:"min=0"`
	DefaultLoanDays int    `validate:"min=1"`
}

// RegisterSchool creates the tenant and seeds its default admin account
// (username "admin", password "admin").
func (m *Manager) RegisterSchool(p RegisterSchoolParams) (*School, error) {
	if err := m.validate.Struct(p); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}
	school, err := m.store.RegisterSchool(p.Name, p.Password, p.FinePerDay, p.DefaultLoanDays)
	if err != nil {
		return nil, err
	}
	if err := m.ensureDefaultAdmin(school.ID); err != nil {
		return nil, err
	}
	return school, nil
}

func (m *Manager) ensureDefaultAdmin(schoolID int64) error {
	n, err := m.store.CountUsers(schoolID)
	if err != nil || n > 0 {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = m.store.AddUser(schoolID, "admin", string(hash), RoleAdmin)
	return err
}

// SchoolLogin validates the school-level credentials.
func (m *Manager) SchoolLogin(name, password string) (*School, error) {
	return m.store.ValidateSchoolCredentials(name, password)
}

// UserLogin validates a staff login within a school.
func (m *Manager) UserLogin(schoolID int64, username, password string) (*User, error) {
	u, err := m.store.GetUser(schoolID, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CreateUser adds a staff account; Admin only.
func (m *Manager) CreateUser(actor Role, schoolID int64, username, password string, role Role) (*User, error) {
	if !Allowed(OpManageUsers, actor) {
		return nil, ErrPermissionDenied
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	id, err := m.store.AddUser(schoolID, username, string(hash), role)
	if err != nil {
		return nil, err
	}
	return &User{ID: id, SchoolID: schoolID, Username: username, Role: role}, nil
}

// DeleteUser removes a staff account; Admin only.
func (m *Manager) DeleteUser(actor Role, schoolID int64, username string) error {
	if !Allowed(OpManageUsers, actor) {
		return ErrPermissionDenied
	}
	return m.store.DeleteUser(schoolID, username)
}

// ListUsers returns the school's staff accounts.
func (m *Manager) ListUsers(schoolID int64) ([]*User, error) { return m.store.ListUsers(schoolID) }

// ------------------ Students ------------------

// AddStudentParams carries the student form.
type AddStudentParams struct {
	AdmissionNo string `validate:"required"`
	Name        string `validate:"required"`
	Class       string
}

// AddStudent registers a student; open to every role.
func (m *Manager) AddStudent(schoolID int64, p AddStudentParams) (int64, error) {
	if err := m.validate.Struct(p); err != nil {
		return 0, fmt.Errorf("invalid student: %w", err)
	}
	return m.store.AddStudent(schoolID, p.AdmissionNo, p.Name, p.Class)
}

// DeleteStudent removes a student after the role and active-loan guards.
// The store snapshots the row into the undo log before deleting.
func (m *Manager) DeleteStudent(actor Role, schoolID int64, admissionNo string) error {
	if !Allowed(OpDeleteStudent, actor) {
		return ErrPermissionDenied
	}
	active, err := m.store.HasActiveStudentLoans(schoolID, admissionNo)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveLoans
	}
	return m.store.DeleteStudent(schoolID, admissionNo)
}

func (m *Manager) FindStudent(schoolID int64, admissionNo string) (*Student, error) {
	return m.store.FindStudent(schoolID, admissionNo)
}

func (m *Manager) ListStudents(schoolID int64) ([]*Student, error) {
	return m.store.ListStudents(schoolID)
}

func (m *Manager) SearchStudents(schoolID int64, term string) ([]*Student, error) {
	return m.store.SearchStudents(schoolID, term)
}

func (m *Manager) UniqueClasses(schoolID int64) ([]string, error) {
	return m.store.UniqueClasses(schoolID)
}

// ------------------ Books ------------------

// AddBookParams carries the book form.
type AddBookParams struct {
	Title          string `validate:"required"`
	Author         string
	Barcode        string `validate:"required"`
	NonCirculating bool
	Condition      string `validate:"omitempty,oneof=New Good Fair Poor Damaged"`
}

// AddBook catalogs a book; Assistants may not.
func (m *Manager) AddBook(actor Role, schoolID int64, p AddBookParams) (int64, error) {
	if !Allowed(OpAddBook, actor) {
		return 0, ErrPermissionDenied
	}
	if err := m.validate.Struct(p); err != nil {
		return 0, fmt.Errorf("invalid book: %w", err)
	}
	return m.store.AddBook(schoolID, p.Title, p.Author, p.Barcode, p.NonCirculating, p.Condition)
}

// DeleteBook removes a book after the role and active-loan guards.
func (m *Manager) DeleteBook(actor Role, schoolID int64, barcode string) error {
	if !Allowed(OpDeleteBook, actor) {
		return ErrPermissionDenied
	}
	active, err := m.store.HasActiveBookLoans(schoolID, barcode)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveLoans
	}
	return m.store.DeleteBook(schoolID, barcode)
}

func (m *Manager) FindBook(schoolID int64, barcode string) (*Book, error) {
	return m.store.FindBook(schoolID, barcode)
}

func (m *Manager) ListBooks(schoolID int64) ([]*Book, error) { return m.store.ListBooks(schoolID) }

func (m *Manager) SearchBooks(schoolID int64, term string) ([]*Book, error) {
	return m.store.SearchBooks(schoolID, term)
}

func (m *Manager) UniqueAuthors(schoolID int64) ([]string, error) {
	return m.store.UniqueAuthors(schoolID)
}

// ------------------ Circulation ------------------

// BorrowByBarcode resolves the student and book and records the loan.
// The non-circulating filter lives here, in the calling layer; the ledger
// itself does not enforce it.
func (m *Manager) BorrowByBarcode(schoolID int64, admissionNo, barcode string, days int) (*Loan, error) {
	student, err := m.store.FindStudent(schoolID, admissionNo)
	if err != nil {
		return nil, fmt.Errorf("student %q: %w", admissionNo, err)
	}
	book, err := m.store.FindBook(schoolID, barcode)
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", barcode, err)
	}
	if book.NonCirculating {
		return nil, ErrNonCirculating
	}
	return m.store.Borrow(schoolID, book.ID, student.ID, days)
}

// ReturnByBarcode resolves the book and closes its active loan, reporting
// any fine.
func (m *Manager) ReturnByBarcode(schoolID int64, barcode string) (*ReturnResult, error) {
	book, err := m.store.FindBook(schoolID, barcode)
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", barcode, err)
	}
	return m.store.Return(schoolID, book.ID)
}

func (m *Manager) CurrentLoans(schoolID int64) ([]*LoanRecord, error) {
	return m.store.CurrentLoans(schoolID)
}

func (m *Manager) StudentActiveLoans(schoolID, studentID int64) ([]*LoanRecord, error) {
	return m.store.StudentActiveLoans(schoolID, studentID)
}

func (m *Manager) LoanHistory(schoolID int64) ([]*LoanRecord, error) {
	return m.store.LoanHistory(schoolID)
}

func (m *Manager) StudentLoanHistory(schoolID, studentID int64) ([]*LoanRecord, error) {
	return m.store.StudentLoanHistory(schoolID, studentID)
}

// ------------------ Undo ------------------

func (m *Manager) RecentDeletions(schoolID int64, limit int) ([]*UndoEntry, error) {
	return m.store.RecentDeletions(schoolID, limit)
}

func (m *Manager) Undo(schoolID, entryID int64) error { return m.store.Undo(schoolID, entryID) }

// ------------------ Settings & license ------------------

// UpdateSettings changes the school's fine rate and loan period; Admin
// only.
func (m *Manager) UpdateSettings(actor Role, schoolID int64, finePerDay int64, loanDays int) error {
	if !Allowed(OpChangeSettings, actor) {
		return ErrPermissionDenied
	}
	if loanDays < 1 {
		return fmt.Errorf("loan days must be at least 1")
	}
	if finePerDay < 0 {
		return fmt.Errorf("fine per day must not be negative")
	}
	return m.store.UpdateSchoolSettings(schoolID, finePerDay, loanDays)
}

func (m *Manager) GetSchoolByID(schoolID int64) (*School, error) {
	return m.store.GetSchoolByID(schoolID)
}

// ActivateLicense validates the license file at srcPath for the school
// and, when valid, installs it into the data directory.
func (m *Manager) ActivateLicense(srcPath, schoolName string) error {
	if err := ValidateLicenseFile(srcPath, schoolName); err != nil {
		return err
	}
	lic, err := ReadLicenseFile(srcPath)
	if err != nil {
		return err
	}
	return WriteLicenseFile(m.licensePath, lic)
}

// LicenseStatus describes the installed license: "Not activated",
// "Valid", or "Invalid: <reason>". Advisory only.
func (m *Manager) LicenseStatus(schoolName string) string {
	if _, err := os.Stat(m.licensePath); err != nil {
		return "Not activated"
	}
	if err := ValidateLicenseFile(m.licensePath, schoolName); err != nil {
		return "Invalid: " + err.Error()
	}
	return "Valid"
}

// ------------------ Drafts ------------------

func (m *Manager) SaveDraft(category string, fields map[string]string) error {
	return m.drafts.Save(category, fields)
}

func (m *Manager) LoadDraft(category string) (map[string]string, error) {
	return m.drafts.Load(category)
}

func (m *Manager) ClearDraft(category string) error { return m.drafts.Clear(category) }

// ------------------ Backup & restore ------------------

// ExportBackup copies the database file at rest to destPath.
func (m *Manager) ExportBackup(destPath string) error { return m.store.ExportBackup(destPath) }

// RestoreBackup replaces the database with the file at srcPath. The store
// is closed for the swap (restore requires exclusive access) and reopened
// afterwards; Admin only.
func (m *Manager) RestoreBackup(actor Role, srcPath string) error {
	if !Allowed(OpRestoreBackup, actor) {
		return ErrPermissionDenied
	}
	dbPath := m.store.Path()
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := replaceDatabaseFile(srcPath, dbPath); err != nil {
		// Reopen the old database so the session can continue.
		if store, openErr := OpenStore(dbPath); openErr == nil {
			m.store = store
		}
		return err
	}
	store, err := OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("reopen restored database: %w", err)
	}
	m.store = store
	return nil
}

package library

import (
	"encoding/json"
	"time"
)

// Role is the access level of a staff user within a school.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleLibrarian Role = "Librarian"
	RoleAssistant Role = "Assistant"
)

// BookConditions lists the accepted physical conditions of a book copy.
var BookConditions = []string{"New", "Good", "Fair", "Poor", "Damaged"}

// Defaults applied when a school registers without explicit settings.
const (
	DefaultFinePerDay = 10
	DefaultLoanDays   = 14
)

// School is the tenant: every other record is scoped by its id.
type School struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Password        string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	FinePerDay      int64     `json:"fine_per_day"`
	DefaultLoanDays int       `json:"default_loan_days"`
}

// User is a staff account belonging to one school. The username is unique
// within the school, not globally.
type User struct {
	ID           int64  `json:"id"`
	SchoolID     int64  `json:"school_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Don't serialize password hash
	Role         Role   `json:"role"`
}

// Student is identified within its school by admission number.
type Student struct {
	ID          int64  `json:"id"`
	SchoolID    int64  `json:"school_id"`
	AdmissionNo string `json:"admission_no"`
	Name        string `json:"name"`
	Class       string `json:"class"`
}

// Book is identified within its school by barcode. A non-circulating book
// is reference-only and must not be lent out; that rule is enforced by the
// calling layer, not the loan ledger.
type Book struct {
	ID             int64  `json:"id"`
	SchoolID       int64  `json:"school_id"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	Barcode        string `json:"barcode"`
	NonCirculating bool   `json:"non_circulating"`
	Condition      string `json:"condition"`
}

// Loan links one book to one student within a school. A loan is active
// while ReturnedAt is nil; at most one active loan exists per book.
//
// FinePaid is persisted for schema compatibility but nothing sets or reads
// it; fines are reported to the caller, never tracked as owed/paid.
type Loan struct {
	ID         int64      `json:"id"`
	SchoolID   int64      `json:"school_id"`
	BookID     int64      `json:"book_id"`
	StudentID  int64      `json:"student_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	FinePaid   bool       `json:"fine_paid"`
}

// Active reports whether the loan has not been returned yet.
func (l *Loan) Active() bool { return l.ReturnedAt == nil }

// LoanRecord is a loan joined with the book and student it references,
// shaped for listing.
type LoanRecord struct {
	Loan
	Title       string `json:"title"`
	Barcode     string `json:"barcode"`
	Condition   string `json:"condition"`
	AdmissionNo string `json:"admission_no"`
	StudentName string `json:"student_name"`
}

// ReturnResult is what a successful return reports back to the caller.
// The fine is informational only.
type ReturnResult struct {
	Loan     Loan  `json:"loan"`
	DaysLate int   `json:"days_late"`
	Fine     int64 `json:"fine"`
}

// UndoEntry is a snapshot of a deleted student or book row, kept until it
// is replayed as a re-insertion or dropped by hand.
type UndoEntry struct {
	ID        int64           `json:"id"`
	SchoolID  int64           `json:"school_id"`
	Table     string          `json:"table_name"`
	Record    json.RawMessage `json:"record_data"`
	DeletedAt time.Time       `json:"deleted_at"`
}

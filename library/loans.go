package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Borrow records a new loan of bookID to studentID. It fails with
// ErrAlreadyBorrowed while the book has an active loan, which keeps the
// at-most-one-active-loan-per-book invariant. days overrides the loan
// period when positive; otherwise the school's default applies.
//
// Borrow deliberately does not reject non-circulating books: filtering
// those is the calling layer's job (see Manager.BorrowByBarcode).
//
// The existence check and the insert run in one transaction so a second
// connection cannot slip a loan in between them.
func (s *Store) Borrow(schoolID, bookID, studentID int64, days int) (*Loan, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRow(
		`SELECT id FROM loans WHERE school_id=? AND book_id=? AND returned_at IS NULL`,
		schoolID, bookID).Scan(&existing)
	if err == nil {
		return nil, ErrAlreadyBorrowed
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if days <= 0 {
		err = tx.QueryRow(`SELECT default_loan_days FROM schools WHERE id=?`, schoolID).Scan(&days)
		if errors.Is(err, sql.ErrNoRows) {
			days = DefaultLoanDays
		} else if err != nil {
			return nil, err
		}
	}

	borrowedAt := s.now()
	dueDate := borrowedAt.Add(time.Duration(days) * 24 * time.Hour)

	res, err := tx.Exec(
		`INSERT INTO loans(school_id,book_id,student_id,borrowed_at,due_date) VALUES(?,?,?,?,?)`,
		schoolID, bookID, studentID, borrowedAt, dueDate)
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Loan{
		ID:         id,
		SchoolID:   schoolID,
		BookID:     bookID,
		StudentID:  studentID,
		BorrowedAt: borrowedAt,
		DueDate:    dueDate,
	}, nil
}

// Return closes the book's active loan and reports the fine. It fails
// with ErrNoActiveLoan when the book is not out.
//
// Lateness is the calendar-date difference between return and due date:
// time-of-day is discarded first, so a partial day never inflates the
// fine. The fine amount is reported to the caller and not persisted.
func (s *Store) Return(schoolID, bookID int64) (*ReturnResult, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var loan Loan
	err = tx.QueryRow(
		`SELECT id,school_id,book_id,student_id,borrowed_at,due_date FROM loans
         WHERE school_id=? AND book_id=? AND returned_at IS NULL`,
		schoolID, bookID).
		Scan(&loan.ID, &loan.SchoolID, &loan.BookID, &loan.StudentID, &loan.BorrowedAt, &loan.DueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveLoan
	}
	if err != nil {
		return nil, err
	}

	returnedAt := s.now()
	if _, err := tx.Exec(`UPDATE loans SET returned_at=? WHERE id=?`, returnedAt, loan.ID); err != nil {
		return nil, fmt.Errorf("mark returned: %w", err)
	}

	var finePerDay int64 = DefaultFinePerDay
	err = tx.QueryRow(`SELECT fine_per_day FROM schools WHERE id=?`, schoolID).Scan(&finePerDay)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	loan.ReturnedAt = &returnedAt
	daysLate := calendarDaysBetween(loan.DueDate, returnedAt)
	res := &ReturnResult{Loan: loan, DaysLate: daysLate}
	if daysLate > 0 {
		res.Fine = int64(daysLate) * finePerDay
	}
	return res, nil
}

// calendarDaysBetween counts whole calendar days from due to returned in
// UTC. Negative means returned early.
func calendarDaysBetween(due, returned time.Time) int {
	d := dateOnly(due)
	r := dateOnly(returned)
	return int(r.Sub(d).Hours() / 24)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ---------------------------------------------------------------------------
// Loan queries
// ---------------------------------------------------------------------------

const loanRecordColumns = `loans.id, loans.school_id, loans.book_id, loans.student_id,
    loans.borrowed_at, loans.due_date, loans.returned_at, loans.fine_paid,
    books.title, books.barcode, books.condition, students.admission_no, students.name`

// CurrentLoans lists all active loans of a school in insertion order.
func (s *Store) CurrentLoans(schoolID int64) ([]*LoanRecord, error) {
	return s.queryLoanRecords(`SELECT `+loanRecordColumns+`
        FROM loans
        JOIN books ON books.id = loans.book_id
        JOIN students ON students.id = loans.student_id
        WHERE loans.school_id=? AND loans.returned_at IS NULL`, schoolID)
}

// StudentActiveLoans lists a student's active loans, soonest due first.
func (s *Store) StudentActiveLoans(schoolID, studentID int64) ([]*LoanRecord, error) {
	return s.queryLoanRecords(`SELECT `+loanRecordColumns+`
        FROM loans
        JOIN books ON books.id = loans.book_id
        JOIN students ON students.id = loans.student_id
        WHERE loans.school_id=? AND loans.student_id=? AND loans.returned_at IS NULL
        ORDER BY loans.due_date`, schoolID, studentID)
}

// LoanHistory lists every loan of a school, most recent first.
func (s *Store) LoanHistory(schoolID int64) ([]*LoanRecord, error) {
	return s.queryLoanRecords(`SELECT `+loanRecordColumns+`
        FROM loans
        JOIN books ON books.id = loans.book_id
        JOIN students ON students.id = loans.student_id
        WHERE loans.school_id=?
        ORDER BY loans.borrowed_at DESC`, schoolID)
}

// StudentLoanHistory lists one student's loans, most recent first.
func (s *Store) StudentLoanHistory(schoolID, studentID int64) ([]*LoanRecord, error) {
	return s.queryLoanRecords(`SELECT `+loanRecordColumns+`
        FROM loans
        JOIN books ON books.id = loans.book_id
        JOIN students ON students.id = loans.student_id
        WHERE loans.school_id=? AND loans.student_id=?
        ORDER BY loans.borrowed_at DESC`, schoolID, studentID)
}

func (s *Store) queryLoanRecords(query string, args ...any) ([]*LoanRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*LoanRecord
	for rows.Next() {
		var r LoanRecord
		var returnedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.SchoolID, &r.BookID, &r.StudentID,
			&r.BorrowedAt, &r.DueDate, &returnedAt, &r.FinePaid,
			&r.Title, &r.Barcode, &r.Condition, &r.AdmissionNo, &r.StudentName); err != nil {
			return nil, err
		}
		if returnedAt.Valid {
			t := returnedAt.Time
			r.ReturnedAt = &t
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddStudent registers a student. A duplicate admission number within the
// same school surfaces as ErrDuplicate; the same number under another
// school is fine.
func (s *Store) AddStudent(schoolID int64, admissionNo, name, class string) (int64, error) {
	res, err := s.addStudentStmt.Exec(schoolID, admissionNo, name, class)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("add student: %w", err)
	}
	return res.LastInsertId()
}

// FindStudent looks a student up by admission number.
func (s *Store) FindStudent(schoolID int64, admissionNo string) (*Student, error) {
	var st Student
	err := s.db.QueryRow(
		`SELECT id,school_id,admission_no,name,class FROM students WHERE school_id=? AND admission_no=?`,
		schoolID, admissionNo).
		Scan(&st.ID, &st.SchoolID, &st.AdmissionNo, &st.Name, &st.Class)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns all students of a school ordered by name.
func (s *Store) ListStudents(schoolID int64) ([]*Student, error) {
	return s.queryStudents(`SELECT id,school_id,admission_no,name,class
        FROM students WHERE school_id=? ORDER BY name`, schoolID)
}

// SearchStudents matches the admission number or the name by substring.
// Case sensitivity follows the store collation (SQLite LIKE).
func (s *Store) SearchStudents(schoolID int64, term string) ([]*Student, error) {
	like := "%" + term + "%"
	return s.queryStudents(`SELECT id,school_id,admission_no,name,class
        FROM students WHERE school_id=? AND (admission_no LIKE ? OR name LIKE ?)
        ORDER BY name`, schoolID, like, like)
}

func (s *Store) queryStudents(query string, args ...any) ([]*Student, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.SchoolID, &st.AdmissionNo, &st.Name, &st.Class); err != nil {
			return nil, err
		}
		students = append(students, &st)
	}
	return students, rows.Err()
}

// UniqueClasses returns the distinct non-empty class names of a school,
// sorted, for pick-lists.
func (s *Store) UniqueClasses(schoolID int64) ([]string, error) {
	return s.distinctColumn(
		`SELECT DISTINCT class FROM students WHERE school_id=? AND class != '' ORDER BY class`, schoolID)
}

func (s *Store) distinctColumn(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// HasActiveStudentLoans reports whether the student holds any unreturned
// book. It gates deletion.
func (s *Store) HasActiveStudentLoans(schoolID int64, admissionNo string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM loans
        JOIN students ON students.id = loans.student_id
        WHERE loans.school_id=? AND students.admission_no=? AND loans.returned_at IS NULL`,
		schoolID, admissionNo).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteStudent snapshots the full row into the undo log and deletes it,
// in one transaction. A missing row is a no-op, not an error.
func (s *Store) DeleteStudent(schoolID int64, admissionNo string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var st Student
	err = tx.QueryRow(
		`SELECT id,school_id,admission_no,name,class FROM students WHERE school_id=? AND admission_no=?`,
		schoolID, admissionNo).
		Scan(&st.ID, &st.SchoolID, &st.AdmissionNo, &st.Name, &st.Class)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.appendUndo(tx, schoolID, undoKindStudents, &st); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM students WHERE school_id=? AND admission_no=?`, schoolID, admissionNo); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return tx.Commit()
}

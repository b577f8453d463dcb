package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// RegisterSchool creates a new tenant. The name is globally unique;
// a collision surfaces as ErrDuplicate, never as a driver fault.
//
// The school password is stored as given: school login is a shared,
// advisory gate in front of the per-user accounts, which do hash.
func (s *Store) RegisterSchool(name, password string, finePerDay int64, loanDays int) (*School, error) {
	if loanDays < 1 {
		loanDays = DefaultLoanDays
	}
	createdAt := s.now()
	res, err := s.db.Exec(
		`INSERT INTO schools(name,password,created_at,fine_per_day,default_loan_days) VALUES(?,?,?,?,?)`,
		name, password, createdAt, finePerDay, loanDays)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("register school: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &School{
		ID:              id,
		Name:            name,
		Password:        password,
		CreatedAt:       createdAt,
		FinePerDay:      finePerDay,
		DefaultLoanDays: loanDays,
	}, nil
}

func (s *Store) scanSchool(row *sql.Row) (*School, error) {
	var sc School
	err := row.Scan(&sc.ID, &sc.Name, &sc.Password, &sc.CreatedAt, &sc.FinePerDay, &sc.DefaultLoanDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// GetSchool fetches a school by its unique name.
func (s *Store) GetSchool(name string) (*School, error) {
	return s.scanSchool(s.db.QueryRow(
		`SELECT id,name,password,created_at,fine_per_day,default_loan_days FROM schools WHERE name=?`, name))
}

// GetSchoolByID fetches a school by id.
func (s *Store) GetSchoolByID(schoolID int64) (*School, error) {
	return s.scanSchool(s.db.QueryRow(
		`SELECT id,name,password,created_at,fine_per_day,default_loan_days FROM schools WHERE id=?`, schoolID))
}

// ValidateSchoolCredentials checks the school-level login. A mismatch is
// ErrInvalidCredentials regardless of whether the school exists.
func (s *Store) ValidateSchoolCredentials(name, password string) (*School, error) {
	sc, err := s.GetSchool(name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if sc.Password != password {
		return nil, ErrInvalidCredentials
	}
	return sc, nil
}

// UpdateSchoolSettings changes the fine rate and default loan period.
func (s *Store) UpdateSchoolSettings(schoolID int64, finePerDay int64, loanDays int) error {
	res, err := s.db.Exec(
		`UPDATE schools SET fine_per_day=?, default_loan_days=? WHERE id=?`,
		finePerDay, loanDays, schoolID)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

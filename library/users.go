package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddUser creates a staff account. The username must be unique within the
// school; the password is expected to be hashed by the caller.
func (s *Store) AddUser(schoolID int64, username, passwordHash string, role Role) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users(school_id,username,password,role) VALUES(?,?,?,?)`,
		schoolID, username, passwordHash, role)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("add user: %w", err)
	}
	return res.LastInsertId()
}

// GetUser fetches one user by username within a school.
func (s *Store) GetUser(schoolID int64, username string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		`SELECT id,school_id,username,password,role FROM users WHERE school_id=? AND username=?`,
		schoolID, username).
		Scan(&u.ID, &u.SchoolID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all staff accounts of a school.
func (s *Store) ListUsers(schoolID int64) ([]*User, error) {
	rows, err := s.db.Query(
		`SELECT id,school_id,username,password,role FROM users WHERE school_id=? ORDER BY username`, schoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.SchoolID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// DeleteUser removes a staff account. Deleting a missing user is a no-op.
func (s *Store) DeleteUser(schoolID int64, username string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE school_id=? AND username=?`, schoolID, username)
	return err
}

// CountUsers reports how many accounts a school has. Used to decide
// whether the default admin still needs to be seeded.
func (s *Store) CountUsers(schoolID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE school_id=?`, schoolID).Scan(&n)
	return n, err
}

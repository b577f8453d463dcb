package library

import (
	"database/sql"
	"errors"
	"fmt"
)

// AddBook catalogs a book. The barcode must be unique within the school;
// a collision surfaces as ErrDuplicate.
func (s *Store) AddBook(schoolID int64, title, author, barcode string, nonCirculating bool, condition string) (int64, error) {
	if condition == "" {
		condition = "Good"
	}
	res, err := s.addBookStmt.Exec(schoolID, title, author, barcode, nonCirculating, condition)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("add book: %w", err)
	}
	return res.LastInsertId()
}

// FindBook looks a book up by barcode.
func (s *Store) FindBook(schoolID int64, barcode string) (*Book, error) {
	var b Book
	err := s.db.QueryRow(
		`SELECT id,school_id,title,author,barcode,non_circulating,condition FROM books WHERE school_id=? AND barcode=?`,
		schoolID, barcode).
		Scan(&b.ID, &b.SchoolID, &b.Title, &b.Author, &b.Barcode, &b.NonCirculating, &b.Condition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns all books of a school ordered by title.
func (s *Store) ListBooks(schoolID int64) ([]*Book, error) {
	return s.queryBooks(`SELECT id,school_id,title,author,barcode,non_circulating,condition
        FROM books WHERE school_id=? ORDER BY title`, schoolID)
}

// SearchBooks matches the title or the barcode by substring.
func (s *Store) SearchBooks(schoolID int64, term string) ([]*Book, error) {
	like := "%" + term + "%"
	return s.queryBooks(`SELECT id,school_id,title,author,barcode,non_circulating,condition
        FROM books WHERE school_id=? AND (title LIKE ? OR barcode LIKE ?)
        ORDER BY title`, schoolID, like, like)
}

func (s *Store) queryBooks(query string, args ...any) ([]*Book, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.SchoolID, &b.Title, &b.Author, &b.Barcode, &b.NonCirculating, &b.Condition); err != nil {
			return nil, err
		}
		books = append(books, &b)
	}
	return books, rows.Err()
}

// UniqueAuthors returns the distinct non-empty authors of a school,
// sorted, for pick-lists.
func (s *Store) UniqueAuthors(schoolID int64) ([]string, error) {
	return s.distinctColumn(
		`SELECT DISTINCT author FROM books WHERE school_id=? AND author != '' ORDER BY author`, schoolID)
}

// HasActiveBookLoans reports whether the book is out on loan. It gates
// deletion.
func (s *Store) HasActiveBookLoans(schoolID int64, barcode string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM loans
        JOIN books ON books.id = loans.book_id
        WHERE loans.school_id=? AND books.barcode=? AND loans.returned_at IS NULL`,
		schoolID, barcode).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteBook snapshots the full row into the undo log and deletes it, in
// one transaction. A missing row is a no-op, not an error.
func (s *Store) DeleteBook(schoolID int64, barcode string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var b Book
	err = tx.QueryRow(
		`SELECT id,school_id,title,author,barcode,non_circulating,condition FROM books WHERE school_id=? AND barcode=?`,
		schoolID, barcode).
		Scan(&b.ID, &b.SchoolID, &b.Title, &b.Author, &b.Barcode, &b.NonCirculating, &b.Condition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.appendUndo(tx, schoolID, undoKindBooks, &b); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM books WHERE school_id=? AND barcode=?`, schoolID, barcode); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return tx.Commit()
}

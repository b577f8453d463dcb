package library

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Entity kinds recorded in the undo log. The kind doubles as the table
// name the snapshot came from.
const (
	undoKindStudents = "students"
	undoKindBooks    = "books"
)

// defaultUndoLimit bounds the recent-deletions view.
const defaultUndoLimit = 10

// restoreFunc replays one snapshot as a fresh insert inside tx. The insert
// is subject to the same uniqueness constraints as any other add, so a
// reused key fails the restore.
type restoreFunc func(tx *sql.Tx, schoolID int64, record json.RawMessage) error

// restorers maps an entity kind to its re-insertion function. Registering
// per kind keeps Undo free of per-type branches; a new restorable entity
// only needs an entry here.
var restorers = map[string]restoreFunc{
	undoKindStudents: restoreStudent,
	undoKindBooks:    restoreBook,
}

func restoreStudent(tx *sql.Tx, schoolID int64, record json.RawMessage) error {
	var st Student
	if err := json.Unmarshal(record, &st); err != nil {
		return fmt.Errorf("decode student snapshot: %w", err)
	}
	_, err := tx.Exec(
		`INSERT INTO students(school_id,admission_no,name,class) VALUES(?,?,?,?)`,
		schoolID, st.AdmissionNo, st.Name, st.Class)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func restoreBook(tx *sql.Tx, schoolID int64, record json.RawMessage) error {
	var b Book
	if err := json.Unmarshal(record, &b); err != nil {
		return fmt.Errorf("decode book snapshot: %w", err)
	}
	_, err := tx.Exec(
		`INSERT INTO books(school_id,title,author,barcode,non_circulating,condition) VALUES(?,?,?,?,?,?)`,
		schoolID, b.Title, b.Author, b.Barcode, b.NonCirculating, b.Condition)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// appendUndo snapshots record as JSON into the undo log within the
// caller's delete transaction.
func (s *Store) appendUndo(tx *sql.Tx, schoolID int64, kind string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", kind, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO undo_log(school_id,table_name,record_data,deleted_at) VALUES(?,?,?,?)`,
		schoolID, kind, string(data), s.now()); err != nil {
		return fmt.Errorf("append undo log: %w", err)
	}
	return nil
}

// RecentDeletions lists undo entries most recent first. limit <= 0 falls
// back to the default of 10.
func (s *Store) RecentDeletions(schoolID int64, limit int) ([]*UndoEntry, error) {
	if limit <= 0 {
		limit = defaultUndoLimit
	}
	rows, err := s.db.Query(
		`SELECT id,school_id,table_name,record_data,deleted_at FROM undo_log
         WHERE school_id=? ORDER BY deleted_at DESC, id DESC LIMIT ?`, schoolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*UndoEntry
	for rows.Next() {
		var e UndoEntry
		var record string
		if err := rows.Scan(&e.ID, &e.SchoolID, &e.Table, &record, &e.DeletedAt); err != nil {
			return nil, err
		}
		e.Record = json.RawMessage(record)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Undo replays the snapshot behind entryID as a re-insertion and removes
// the entry. A missing entry is ErrNotFound. If the admission number or
// barcode was reused in the meantime the restore fails with ErrDuplicate
// and the entry stays in the log for retry.
//
// This reverses only the delete operations that create entries; it is not
// a general transaction undo.
func (s *Store) Undo(schoolID, entryID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var kind, record string
	err = tx.QueryRow(
		`SELECT table_name,record_data FROM undo_log WHERE id=? AND school_id=?`,
		entryID, schoolID).Scan(&kind, &record)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	restore, ok := restorers[kind]
	if !ok {
		return fmt.Errorf("no restorer for %q entries", kind)
	}
	if err := restore(tx, schoolID, json.RawMessage(record)); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM undo_log WHERE id=?`, entryID); err != nil {
		return fmt.Errorf("remove undo entry: %w", err)
	}
	return tx.Commit()
}

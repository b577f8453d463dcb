package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides tenant-scoped persistence over a SQLite connection. It
// owns all durable state; the loan ledger and undo log are stateless
// layers on top of it.
type Store struct {
	db   *sql.DB
	path string

	// now is the clock for borrow/return/delete timestamps. Tests swap it
	// out to exercise temporal logic deterministically.
	now func() time.Time

	addStudentStmt *sql.Stmt
	addBookStmt    *sql.Stmt
}

// OpenStore opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements.
func OpenStore(dbPath string) (*Store, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, path: dbPath, now: func() time.Time { return time.Now().UTC() }}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	if s.addStudentStmt != nil {
		s.addStudentStmt.Close()
	}
	if s.addBookStmt != nil {
		s.addBookStmt.Close()
	}
	return s.db.Close()
}

// Path returns the location of the database file on disk.
func (s *Store) Path() string { return s.path }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schools (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            fine_per_day INTEGER NOT NULL DEFAULT 10,
            default_loan_days INTEGER NOT NULL DEFAULT 14
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            school_id INTEGER NOT NULL REFERENCES schools(id),
            username TEXT NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            UNIQUE(school_id, username)
        );`,
		`CREATE TABLE IF NOT EXISTS students (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            school_id INTEGER NOT NULL REFERENCES schools(id),
            admission_no TEXT NOT NULL,
            name TEXT NOT NULL,
            class TEXT NOT NULL DEFAULT '',
            UNIQUE(school_id, admission_no)
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            school_id INTEGER NOT NULL REFERENCES schools(id),
            title TEXT NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            barcode TEXT NOT NULL,
            non_circulating INTEGER NOT NULL DEFAULT 0,
            condition TEXT NOT NULL DEFAULT 'Good',
            UNIQUE(school_id, barcode)
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            school_id INTEGER NOT NULL REFERENCES schools(id),
            book_id INTEGER NOT NULL REFERENCES books(id),
            student_id INTEGER NOT NULL REFERENCES students(id),
            borrowed_at DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            returned_at DATETIME,
            fine_paid INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS undo_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            school_id INTEGER NOT NULL,
            table_name TEXT NOT NULL,
            record_data TEXT NOT NULL,
            deleted_at DATETIME NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_loans_active
            ON loans(school_id, book_id) WHERE returned_at IS NULL;`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *Store) prepareStatements() error {
	var err error
	if s.addStudentStmt, err = s.db.Prepare(
		`INSERT INTO students(school_id,admission_no,name,class) VALUES(?,?,?,?)`); err != nil {
		return err
	}
	if s.addBookStmt, err = s.db.Prepare(
		`INSERT INTO books(school_id,title,author,barcode,non_circulating,condition) VALUES(?,?,?,?,?,?)`); err != nil {
		return err
	}
	return nil
}

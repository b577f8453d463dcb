package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExportBackup copies the database file at rest to destPath. The WAL is
// checkpointed first so the copy is self-contained.
func (s *Store) ExportBackup(destPath string) error {
	if _, err := s.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`); err != nil {
		return fmt.Errorf("checkpoint wal: %w", err)
	}
	return copyFile(s.path, destPath)
}

// replaceDatabaseFile swaps the database file at dbPath with the one at
// srcPath as an atomic rename. The store must be closed: restore requires
// exclusive access, no other connection open.
func replaceDatabaseFile(srcPath, dbPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dbPath), "restore-*.db")
	if err != nil {
		return fmt.Errorf("stage restore: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := copyFile(srcPath, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Stale WAL/SHM files would shadow the restored content.
	os.Remove(dbPath + "-wal")
	os.Remove(dbPath + "-shm")
	if err := os.Rename(tmpPath, dbPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace database: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return out.Sync()
}

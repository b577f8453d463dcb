package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDeleteStudentSnapshotsRow(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)
	s.AddStudent(sch.ID, "A100", "Jane", "4N")

	if err := s.DeleteStudent(sch.ID, "A100"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindStudent(sch.ID, "A100"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("student still present: %v", err)
	}

	entries, err := s.RecentDeletions(sch.ID, 0)
	if err != nil {
		t.Fatalf("recent deletions: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want exactly 1 undo entry, got %d", len(entries))
	}
	if entries[0].Table != "students" {
		t.Fatalf("wrong kind: %s", entries[0].Table)
	}

	var snap Student
	if err := json.Unmarshal(entries[0].Record, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if snap.AdmissionNo != "A100" || snap.Name != "Jane" || snap.Class != "4N" {
		t.Fatalf("snapshot incomplete: %+v", snap)
	}
}

func TestDeleteMissingRowIsNoop(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)

	if err := s.DeleteStudent(sch.ID, "NOPE"); err != nil {
		t.Fatalf("delete missing student errored: %v", err)
	}
	if err := s.DeleteBook(sch.ID, "NOPE"); err != nil {
		t.Fatalf("delete missing book errored: %v", err)
	}
	entries, _ := s.RecentDeletions(sch.ID, 0)
	if len(entries) != 0 {
		t.Fatalf("no-op delete produced undo entries: %d", len(entries))
	}
}

func TestUndoStudentRoundTrip(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)
	s.AddStudent(sch.ID, "A100", "Jane", "4N")

	if err := s.DeleteStudent(sch.ID, "A100"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ := s.RecentDeletions(sch.ID, 0)
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}

	if err := s.Undo(sch.ID, entries[0].ID); err != nil {
		t.Fatalf("undo: %v", err)
	}

	st, err := s.FindStudent(sch.ID, "A100")
	if err != nil {
		t.Fatalf("student not restored: %v", err)
	}
	if st.Name != "Jane" || st.Class != "4N" {
		t.Fatalf("restored fields differ: %+v", st)
	}

	entries, _ = s.RecentDeletions(sch.ID, 0)
	if len(entries) != 0 {
		t.Fatalf("undo entry not consumed: %d left", len(entries))
	}
}

func TestUndoBookRoundTrip(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)
	s.AddBook(sch.ID, "Atlas", "Smith", "B1", true, "Poor")

	if err := s.DeleteBook(sch.ID, "B1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	entries, _ := s.RecentDeletions(sch.ID, 0)
	if len(entries) != 1 || entries[0].Table != "books" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := s.Undo(sch.ID, entries[0].ID); err != nil {
		t.Fatalf("undo: %v", err)
	}
	b, err := s.FindBook(sch.ID, "B1")
	if err != nil {
		t.Fatalf("book not restored: %v", err)
	}
	if b.Title != "Atlas" || !b.NonCirculating || b.Condition != "Poor" {
		t.Fatalf("restored fields differ: %+v", b)
	}
}

// A reused barcode blocks the restore and the entry must survive for a
// later retry.
func TestUndoConflictKeepsEntry(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)
	s.AddBook(sch.ID, "Original", "Auth", "B1", false, "Good")

	if err := s.DeleteBook(sch.ID, "B1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.AddBook(sch.ID, "Replacement", "Other", "B1", false, "New"); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	entries, _ := s.RecentDeletions(sch.ID, 0)
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if err := s.Undo(sch.ID, entries[0].ID); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	// Entry still there, replacement untouched.
	entries, _ = s.RecentDeletions(sch.ID, 0)
	if len(entries) != 1 {
		t.Fatalf("conflicting undo consumed the entry")
	}
	b, _ := s.FindBook(sch.ID, "B1")
	if b == nil || b.Title != "Replacement" {
		t.Fatalf("replacement book damaged: %+v", b)
	}
}

func TestUndoMissingEntry(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)

	if err := s.Undo(sch.ID, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUndoIsTenantScoped(t *testing.T) {
	s := tempStore(t)
	a, _ := s.RegisterSchool("A", "pw", 10, 14)
	b, _ := s.RegisterSchool("B", "pw", 10, 14)

	s.AddStudent(a.ID, "A100", "Jane", "")
	s.DeleteStudent(a.ID, "A100")

	entries, _ := s.RecentDeletions(a.ID, 0)
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	// Another school can neither see nor replay it.
	other, _ := s.RecentDeletions(b.ID, 0)
	if len(other) != 0 {
		t.Fatalf("cross-tenant undo entries visible: %d", len(other))
	}
	if err := s.Undo(b.ID, entries[0].ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant undo must fail with ErrNotFound, got %v", err)
	}
}

func TestRecentDeletionsOrderAndLimit(t *testing.T) {
	s := tempStore(t)
	sch, _ := s.RegisterSchool("A", "pw", 10, 14)

	base := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		adm := fmt.Sprintf("A%03d", i)
		if _, err := s.AddStudent(sch.ID, adm, "Student "+adm, ""); err != nil {
			t.Fatalf("add %s: %v", adm, err)
		}
		setClock(s, base.Add(time.Duration(i)*time.Minute))
		if err := s.DeleteStudent(sch.ID, adm); err != nil {
			t.Fatalf("delete %s: %v", adm, err)
		}
	}

	entries, err := s.RecentDeletions(sch.ID, 0)
	if err != nil {
		t.Fatalf("recent deletions: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("default limit: want 10, got %d", len(entries))
	}

	var newest Student
	json.Unmarshal(entries[0].Record, &newest)
	if newest.AdmissionNo != "A011" {
		t.Fatalf("most recent first: want A011, got %s", newest.AdmissionNo)
	}

	bounded, _ := s.RecentDeletions(sch.ID, 3)
	if len(bounded) != 3 {
		t.Fatalf("explicit limit: want 3, got %d", len(bounded))
	}
}

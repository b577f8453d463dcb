package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Drafts is the JSON sidecar holding unsaved form input per category
// ("student", "book", ...). It is owned by the presentation layer,
// independent of the relational store, and loaded/saved wholesale. A
// failed write is reported to the caller but never aborts the session.
type Drafts struct {
	path string
}

// NewDrafts points the sidecar at path; the file is created on first save.
func NewDrafts(path string) *Drafts { return &Drafts{path: path} }

func (d *Drafts) readAll() (map[string]map[string]string, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read drafts: %w", err)
	}
	drafts := map[string]map[string]string{}
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parse drafts: %w", err)
	}
	return drafts, nil
}

func (d *Drafts) writeAll(drafts map[string]map[string]string) error {
	data, err := json.Marshal(drafts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("write drafts: %w", err)
	}
	return nil
}

// Save stores the field values under category, replacing any prior draft.
func (d *Drafts) Save(category string, fields map[string]string) error {
	drafts, err := d.readAll()
	if err != nil {
		return err
	}
	drafts[category] = fields
	return d.writeAll(drafts)
}

// Load returns the draft for category, or an empty map when none exists.
func (d *Drafts) Load(category string) (map[string]string, error) {
	drafts, err := d.readAll()
	if err != nil {
		return nil, err
	}
	fields, ok := drafts[category]
	if !ok {
		return map[string]string{}, nil
	}
	return fields, nil
}

// Clear drops the draft for category if present.
func (d *Drafts) Clear(category string) error {
	drafts, err := d.readAll()
	if err != nil {
		return err
	}
	if _, ok := drafts[category]; !ok {
		return nil
	}
	delete(drafts, category)
	return d.writeAll(drafts)
}

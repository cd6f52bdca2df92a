/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package records

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Record is one persisted analysis. Writing a Record with the same Dir and
// Name replaces the previous one.
type Record struct {
	// Dir groups records by subject kind, such as "issues".
	Dir  string
	Name string
	Body []byte
	// ContentType defaults to text/markdown.
	ContentType string
}

// Key is the slash-separated location of the record within a store.
func (r Record) Key() string {
	return path.Join(r.Dir, r.Name)
}

func (r Record) contentType() string {
	if r.ContentType != "" {
		return r.ContentType
	}
	if strings.HasSuffix(r.Name, ".json") {
		return "application/json"
	}
	return "text/markdown; charset=utf-8"
}

func (r Record) validate() error {
	if r.Name == "" {
		return errors.New("record has no name")
	}
	for _, part := range []string{r.Dir, r.Name} {
		if part == ".." || strings.HasPrefix(part, "../") || strings.Contains(part, "/../") || path.IsAbs(part) {
			return fmt.Errorf("record path %q escapes the store", r.Key())
		}
	}
	return nil
}

// Store persists records.
type Store interface {
	Put(ctx context.Context, r Record) error
}

// FileStore writes records under a base directory.
type FileStore struct {
	base string
}

// NewFileStore returns a FileStore rooted at base.
func NewFileStore(base string) *FileStore {
	return &FileStore{base: base}
}

// Put implements Store.
func (s *FileStore) Put(_ context.Context, r Record) error {
	if err := r.validate(); err != nil {
		return err
	}
	dir := filepath.Join(s.base, filepath.FromSlash(r.Dir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	p := filepath.Join(dir, filepath.FromSlash(r.Name))
	if err := os.WriteFile(p, r.Body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

// Path returns where r would be written.
func (s *FileStore) Path(r Record) string {
	return filepath.Join(s.base, filepath.FromSlash(r.Key()))
}

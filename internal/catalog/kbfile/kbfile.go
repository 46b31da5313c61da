// Package kbfile reads and audits the JSON knowledge-base files the
// assistant is fed from. A Document is the raw file content; Build turns
// it into a validated catalog.Catalog.
package kbfile

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmc-uruguay/panelin-server/internal/catalog"
)

// Document mirrors one KB JSON file.
type Document struct {
	Version     string              `json:"version"`
	UpdatedAt   string              `json:"updated_at"`
	Currency    string              `json:"currency"`
	Panels      []catalog.Panel     `json:"panels"`
	Accessories []catalog.Accessory `json:"accessories"`
}

// Load decodes a single KB document. Unknown fields are rejected so typos
// in hand-edited KB files surface instead of silently dropping data.
func Load(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode kb document: %w", err)
	}
	return &doc, nil
}

// LoadFile loads a KB document from disk.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// LoadFS merges every .json file in fsys into one document. Files are
// visited in lexical order; version and currency come from the first file
// that sets them.
func LoadFS(fsys fs.FS) (*Document, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	merged := &Document{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		f, err := fsys.Open(e.Name())
		if err != nil {
			return nil, err
		}
		doc, err := Load(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		merged.merge(doc)
	}

	if len(merged.Panels) == 0 && len(merged.Accessories) == 0 {
		return nil, fmt.Errorf("no kb documents found")
	}
	return merged, nil
}

// LoadDir merges every .json file in dir into one document.
func LoadDir(dir string) (*Document, error) {
	doc, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Clean(dir), err)
	}
	return doc, nil
}

func (d *Document) merge(other *Document) {
	if d.Version == "" {
		d.Version = other.Version
	}
	if d.UpdatedAt == "" {
		d.UpdatedAt = other.UpdatedAt
	}
	if d.Currency == "" {
		d.Currency = other.Currency
	}
	d.Panels = append(d.Panels, other.Panels...)
	d.Accessories = append(d.Accessories, other.Accessories...)
}

// Build converts the document into an immutable catalog, running the
// catalog's own invariant checks.
func (d *Document) Build() (*catalog.Catalog, error) {
	return catalog.New(d.Panels, d.Accessories)
}

// Package snapshot defines the ConfigSnapshot document exchanged between the
// exporter and the importer, and reads and writes it.
//
// A snapshot is written once and read wholesale; nothing updates it in place.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// ConfigSnapshot is the root export document. Every application, role and
// grant carries the source project id in "projectId".
type ConfigSnapshot struct {
	ExportedAt   string            `json:"exportedAt"`
	Projects     []models.Resource `json:"projects"`
	Applications []models.Resource `json:"applications"`
	Roles        []models.Resource `json:"roles"`
	Grants       []models.Resource `json:"grants"`
}

// New returns an empty snapshot stamped with now.
func New(now time.Time) *ConfigSnapshot {
	return &ConfigSnapshot{
		ExportedAt:   now.UTC().Format(time.RFC3339Nano),
		Projects:     []models.Resource{},
		Applications: []models.Resource{},
		Roles:        []models.Resource{},
		Grants:       []models.Resource{},
	}
}

// Summary holds per-kind counts.
type Summary struct {
	Projects     int `json:"projects"`
	Applications int `json:"applications"`
	Roles        int `json:"roles"`
	Grants       int `json:"grants"`
}

// Summary returns the number of entities of each kind.
func (s *ConfigSnapshot) Summary() Summary {
	return Summary{
		Projects:     len(s.Projects),
		Applications: len(s.Applications),
		Roles:        len(s.Roles),
		Grants:       len(s.Grants),
	}
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *ConfigSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// Decode parses and validates a snapshot document.
func Decode(r io.Reader) (*ConfigSnapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var s ConfigSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	return &s, nil
}

// Read loads a snapshot from path.
func Read(path string) (*ConfigSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Write stores s at path. Parent directories are created and the file is
// replaced atomically, so a failed write never leaves a partial snapshot.
func Write(path string, s *ConfigSnapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}

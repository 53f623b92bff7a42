// Package consent persists the user's recording-consent decision. The
// record is versioned: bumping Version invalidates previously granted
// consent so users re-confirm after material changes to what is captured.
package consent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Version is the current consent form version.
const Version = 1

// FileName is the consent record file inside the state directory.
const FileName = "consent.json"

// Record is the persisted consent decision.
type Record struct {
	Granted   bool   `json:"granted"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Store reads and writes the consent record.
type Store struct {
	path string
}

// NewStore creates a Store rooted at stateDir.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{path: filepath.Join(stateDir, FileName)}, nil
}

// HasConsent reports whether consent was granted at the current version.
// A missing or unreadable record means no consent.
func (s *Store) HasConsent() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return false
	}
	return rec.Granted && rec.Version == Version
}

// Record persists a consent decision stamped with the current version and
// time.
func (s *Store) Record(granted bool) error {
	rec := Record{
		Granted:   granted,
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode consent record: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write consent record: %w", err)
	}
	return nil
}

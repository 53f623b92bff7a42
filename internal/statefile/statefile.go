// Package statefile persists the "a recording is in progress" record used
// for crash detection. The record is written atomically on every transition
// that changes recording state, read once at process startup, and deleted
// on clean stop.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the canonical state file name inside the state directory.
const FileName = "state.json"

// Record is the persisted session state. The JSON layout is consumed by a
// new process after a crash, so field names are part of the on-disk format.
type Record struct {
	IsRecording bool   `json:"is_recording"`
	SessionDir  string `json:"session_dir"`
	StartTime   int64  `json:"start_time"`
	PID         int    `json:"pid"`
}

// Store reads and writes the single process-wide state record.
type Store struct {
	path string
}

// NewStore creates a Store rooted at stateDir. The directory is created
// with owner-only permissions if it does not exist.
func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{path: filepath.Join(stateDir, FileName)}, nil
}

// Path returns the canonical state file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the record atomically: the JSON is written to a temporary
// file in the same directory and renamed over the canonical path, so a
// concurrent reader (including a crash detector in a new process) never
// observes a half-written file.
func (s *Store) Save(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode state record: %w", err)
	}
	return atomicWriteFile(s.path, data, 0600)
}

// Load parses the canonical path if present. A missing file or any parse
// failure yields ok=false; corruption is treated as absence and never
// raised.
func (s *Store) Load() (Record, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Clear removes the canonical path. A missing file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear state file: %w", err)
	}
	return nil
}

// atomicWriteFile writes data to a file atomically by writing to a
// temporary file in the same directory and renaming it into place.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

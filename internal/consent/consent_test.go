package consent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestHasConsentNoRecord(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.HasConsent() {
		t.Error("HasConsent() = true with no record")
	}
}

func TestRecordAndCheck(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Record(true); err != nil {
		t.Fatalf("Record(true) error = %v", err)
	}
	if !store.HasConsent() {
		t.Error("HasConsent() = false after granting")
	}

	if err := store.Record(false); err != nil {
		t.Fatalf("Record(false) error = %v", err)
	}
	if store.HasConsent() {
		t.Error("HasConsent() = true after revoking")
	}
}

func TestStaleVersionInvalidatesConsent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	stale, _ := json.Marshal(Record{Granted: true, Version: Version - 1, Timestamp: "2025-01-01T00:00:00Z"})
	if err := os.WriteFile(filepath.Join(dir, FileName), stale, 0600); err != nil {
		t.Fatal(err)
	}

	if store.HasConsent() {
		t.Error("HasConsent() = true for an outdated consent version")
	}
}

func TestCorruptRecordMeansNoConsent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}
	if store.HasConsent() {
		t.Error("HasConsent() = true for a corrupt record")
	}
}

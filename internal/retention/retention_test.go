package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/recapd/recap/internal/logging"
	"github.com/recapd/recap/internal/orchestrator"
)

func makeSession(t *testing.T, outputDir, name string, completed bool, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(outputDir, name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if completed {
		marker := filepath.Join(dir, orchestrator.CompleteMarker)
		if err := os.WriteFile(marker, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}
		if age > 0 {
			old := time.Now().Add(-age)
			if err := os.Chtimes(marker, old, old); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

func TestSweepDeletesOnlyExpiredCompletedSessions(t *testing.T) {
	outputDir := t.TempDir()

	expired := makeSession(t, outputDir, "recording_20250101_120000", true, 60*24*time.Hour)
	fresh := makeSession(t, outputDir, "recording_20260829_120000", true, time.Hour)
	crashed := makeSession(t, outputDir, "recording_20250201_120000", false, 0)

	sweeper := NewSweeper(outputDir, 30, logging.NopLogger())
	if removed := sweeper.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d sessions, want 1", removed)
	}

	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Error("expired completed session survived the sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh session was deleted")
	}
	if _, err := os.Stat(crashed); err != nil {
		t.Error("session without a completion marker was deleted")
	}
}

func TestSweepIgnoresForeignDirectories(t *testing.T) {
	outputDir := t.TempDir()
	foreign := filepath.Join(outputDir, "notes")
	if err := os.MkdirAll(foreign, 0700); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(foreign, orchestrator.CompleteMarker)
	if err := os.WriteFile(marker, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-90 * 24 * time.Hour)
	if err := os.Chtimes(marker, old, old); err != nil {
		t.Fatal(err)
	}

	sweeper := NewSweeper(outputDir, 30, logging.NopLogger())
	if removed := sweeper.Sweep(); removed != 0 {
		t.Errorf("Sweep() removed %d, want 0", removed)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("directory outside the session naming scheme was deleted")
	}
}

func TestSweepDisabled(t *testing.T) {
	outputDir := t.TempDir()
	makeSession(t, outputDir, "recording_20200101_120000", true, 1000*24*time.Hour)

	sweeper := NewSweeper(outputDir, 0, logging.NopLogger())
	if removed := sweeper.Sweep(); removed != 0 {
		t.Errorf("disabled Sweep() removed %d sessions, want 0", removed)
	}
}

func TestSweepMissingOutputDir(t *testing.T) {
	sweeper := NewSweeper(filepath.Join(t.TempDir(), "absent"), 30, logging.NopLogger())
	if removed := sweeper.Sweep(); removed != 0 {
		t.Errorf("Sweep() on missing dir removed %d, want 0", removed)
	}
}

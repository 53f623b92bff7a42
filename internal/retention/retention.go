// Package retention deletes completed recording sessions once they age
// past the configured retention window. Only directories carrying a clean
// completion marker are eligible: crashed or in-progress sessions are
// never swept automatically.
package retention

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/recapd/recap/internal/logging"
	"github.com/recapd/recap/internal/orchestrator"
)

// sweepSchedule runs the sweep daily; Sweep also runs once at startup so
// short-lived processes still apply the policy.
const sweepSchedule = "@daily"

// Sweeper applies the retention policy to the output directory.
type Sweeper struct {
	logger    *logging.Logger
	outputDir string
	maxAge    time.Duration
	cron      *cron.Cron
}

// NewSweeper creates a Sweeper deleting completed sessions older than
// maxAgeDays. maxAgeDays <= 0 disables sweeping.
func NewSweeper(outputDir string, maxAgeDays int, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NopLogger()
	}
	var maxAge time.Duration
	if maxAgeDays > 0 {
		maxAge = time.Duration(maxAgeDays) * 24 * time.Hour
	}
	return &Sweeper{
		logger:    logger,
		outputDir: outputDir,
		maxAge:    maxAge,
	}
}

// Start runs an immediate sweep and schedules recurring ones. No-op when
// retention is disabled.
func (s *Sweeper) Start() {
	if s.maxAge == 0 {
		return
	}

	s.Sweep()

	s.cron = cron.New()
	_, err := s.cron.AddFunc(sweepSchedule, func() { s.Sweep() })
	if err != nil {
		s.logger.Error("failed to schedule retention sweep", "error", err.Error())
		return
	}
	s.cron.Start()
}

// Stop cancels the recurring sweep.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep deletes eligible session directories and returns how many were
// removed.
func (s *Sweeper) Sweep() int {
	if s.maxAge == 0 {
		return 0
	}

	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("retention sweep failed to list output directory",
				"dir", s.outputDir, "error", err.Error())
		}
		return 0
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "recording_") {
			continue
		}
		dir := filepath.Join(s.outputDir, entry.Name())
		if !s.eligible(dir, cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to delete expired session",
				"dir", dir, "error", err.Error())
			continue
		}
		s.logger.Info("deleted expired session", "dir", dir)
		removed++
	}
	return removed
}

// eligible reports whether a session directory is completed and older
// than the cutoff. Age is judged by the completion marker's modification
// time: it is the last file written on clean stop.
func (s *Sweeper) eligible(dir string, cutoff time.Time) bool {
	info, err := os.Stat(filepath.Join(dir, orchestrator.CompleteMarker))
	if err != nil {
		return false
	}
	return info.ModTime().Before(cutoff)
}

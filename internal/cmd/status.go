package cmd

import (
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/recapd/recap/internal/config"
	"github.com/recapd/recap/internal/statefile"
)

var (
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a recording session is in progress",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := statefile.NewStore(config.StateDir())
	if err != nil {
		return err
	}

	rec, ok := store.Load()
	if !ok || !rec.IsRecording {
		cmd.Println(idleStyle.Render("No recording in progress."))
		return nil
	}

	// The record may be stale if the owning process crashed; say so
	// rather than guessing.
	alive := processAlive(rec.PID)
	if alive {
		elapsed := time.Since(time.Unix(rec.StartTime, 0)).Round(time.Second)
		cmd.Println(activeStyle.Render("● Recording in progress"))
		cmd.Printf("  Session: %s\n", rec.SessionDir)
		cmd.Printf("  Elapsed: %s (pid %d)\n", elapsed, rec.PID)
		return nil
	}

	cmd.Println(activeStyle.Render("! Stale session state detected"))
	cmd.Printf("  Session %s was not stopped cleanly (pid %d is gone).\n", rec.SessionDir, rec.PID)
	cmd.Println("  Run 'recap recover' to mark it and clear the state.")
	return nil
}

// processAlive reports whether pid names a live process. Signal 0 probes
// without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

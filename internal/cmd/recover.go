package cmd

import (
	"github.com/spf13/cobra"

	"github.com/recapd/recap/internal/config"
	"github.com/recapd/recap/internal/notify"
	"github.com/recapd/recap/internal/orchestrator"
	"github.com/recapd/recap/internal/statefile"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Detect and mark a session abandoned by a crash",
	Long: `Checks the persisted session state for a recording that never stopped
cleanly. If one is found, its directory is marked as interrupted and the
stale state is cleared. Running this is optional: the same check runs
automatically before every new recording.`,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger := newLogger(cfg)
	defer logger.Close()

	store, err := statefile.NewStore(config.StateDir())
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		OutputDir: cfg.Output.ResolveOutputDir(),
		Notifier:  notify.New(logger),
	}, store, logger)

	dir, recovered := orch.RecoverOnStartup()
	if !recovered {
		cmd.Println("No abandoned session found.")
		return nil
	}
	cmd.Printf("Marked abandoned session: %s\n", dir)
	return nil
}

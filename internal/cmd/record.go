package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recapd/recap/internal/config"
	"github.com/recapd/recap/internal/consent"
	"github.com/recapd/recap/internal/logging"
	"github.com/recapd/recap/internal/notify"
	"github.com/recapd/recap/internal/orchestrator"
	"github.com/recapd/recap/internal/permissions"
	"github.com/recapd/recap/internal/retention"
	"github.com/recapd/recap/internal/sessionsize"
	"github.com/recapd/recap/internal/sleepguard"
	"github.com/recapd/recap/internal/statefile"
	"github.com/recapd/recap/internal/tui"
)

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Start a recording session",
	Long: `Starts capturing the enabled streams into a new session directory and
records until stopped with q or an interrupt signal. The optional name
replaces the default "recording" directory prefix.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

var recordFlags struct {
	fps         int
	noScreen    bool
	noAudio     bool
	noMic       bool
	noBluetooth bool
	noAnonymize bool
	outputDir   string
	headless    bool
}

func init() {
	recordCmd.Flags().IntVar(&recordFlags.fps, "fps", 0, "screen capture frame rate (overrides config)")
	recordCmd.Flags().BoolVar(&recordFlags.noScreen, "no-screen", false, "disable screen capture")
	recordCmd.Flags().BoolVar(&recordFlags.noAudio, "no-audio", false, "disable system audio capture")
	recordCmd.Flags().BoolVar(&recordFlags.noMic, "no-mic", false, "disable microphone capture")
	recordCmd.Flags().BoolVar(&recordFlags.noBluetooth, "no-bluetooth", false, "disable Bluetooth proximity capture")
	recordCmd.Flags().BoolVar(&recordFlags.noAnonymize, "no-anonymize", false, "log raw Bluetooth device names")
	recordCmd.Flags().StringVar(&recordFlags.outputDir, "output-dir", "", "session output directory (overrides config)")
	recordCmd.Flags().BoolVar(&recordFlags.headless, "headless", false, "run without the status view")
	rootCmd.AddCommand(recordCmd)
}

// applyRecordFlags overlays command-line flags onto the loaded config.
func applyRecordFlags(cfg *config.Config) {
	if recordFlags.fps > 0 {
		cfg.Recording.FPS = recordFlags.fps
	}
	if recordFlags.noScreen {
		cfg.Recording.Enabled = false
	}
	if recordFlags.noAudio {
		cfg.Audio.SystemAudio = false
	}
	if recordFlags.noMic {
		cfg.Audio.Microphone = false
	}
	if recordFlags.noBluetooth {
		cfg.Bluetooth.Enabled = false
	}
	if recordFlags.noAnonymize {
		cfg.Bluetooth.Anonymize = false
	}
	if recordFlags.outputDir != "" {
		cfg.Output.Directory = recordFlags.outputDir
	}
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyRecordFlags(cfg)

	logger := newLogger(cfg)
	defer logger.Close()

	stateDir := config.StateDir()
	if err := ensureConsent(cfg, stateDir, cmd); err != nil {
		return err
	}

	warnDeniedPermissions(cmd, logger)

	store, err := statefile.NewStore(stateDir)
	if err != nil {
		return err
	}

	notifier := notify.New(logger)
	outputDir := cfg.Output.ResolveOutputDir()

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	orch := orchestrator.New(orchestrator.Options{
		OutputDir: outputDir,
		Name:      name,
		Streams:   orchestrator.StreamsFromConfig(cfg),
		NewUnit:   orchestrator.ConfigUnitFactory(cfg, logger),
		Notifier:  notifier,
	}, store, logger)

	if dir, recovered := orch.RecoverOnStartup(); recovered {
		cmd.Printf("Previous session did not finish cleanly: %s\n", dir)
	}

	sweeper := retention.NewSweeper(outputDir, cfg.Privacy.AutoDeleteDays, logger)
	sweeper.Start()
	defer sweeper.Stop()

	guard := sleepguard.New(logger)

	report, err := orch.Start(cmd.Context())
	if err != nil {
		return err
	}
	guard.Acquire()
	defer guard.Release()
	notifier.Play(notify.SoundStart)

	for kind, startErr := range report.Failed {
		cmd.Printf("warning: %s stream not started: %v\n", kind, startErr)
	}

	session := orch.Session()
	cmd.Printf("Recording to %s\n", session.Dir)

	// A termination signal takes the same stop path as the q key.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	stopErr := waitAndStop(orch, session, sigCh, logger)
	notifier.Play(notify.SoundStop)
	if stopErr != nil && stopErr != orchestrator.ErrNotRecording {
		return stopErr
	}
	cmd.Println("Recording stopped.")
	return nil
}

// waitAndStop blocks until the session ends, either through the status
// view or a signal, then guarantees Stop has run exactly once.
func waitAndStop(orch *orchestrator.Orchestrator, session *orchestrator.Session, sigCh <-chan os.Signal, logger *logging.Logger) error {
	if recordFlags.headless {
		<-sigCh
		return orch.Stop()
	}

	tracker, err := sessionsize.NewTracker(session.Dir, logger)
	var size tui.SizeFunc
	if err != nil {
		logger.Warn("session size tracking unavailable", "error", err.Error())
	} else {
		defer tracker.Close()
		size = tracker.Size
	}

	model := tui.NewModel(orch, session.Dir, session.Streams, session.StartWall, size)
	program := tea.NewProgram(model)

	go func() {
		<-sigCh
		program.Quit()
	}()

	final, err := program.Run()
	if err != nil {
		logger.Error("status view failed", "error", err.Error())
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil && m.Err() != orchestrator.ErrNotRecording {
		return m.Err()
	}
	// Covers signal-triggered exit and view errors; a stop that already
	// happened reports ErrNotRecording, which is the clean case here.
	if err := orch.Stop(); err != nil && err != orchestrator.ErrNotRecording {
		return err
	}
	return nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(config.StateDir(), cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: debug log unavailable: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// ensureConsent blocks recording until the user has granted consent at
// the current consent version.
func ensureConsent(cfg *config.Config, stateDir string, cmd *cobra.Command) error {
	if !cfg.Privacy.RequireConsent {
		return nil
	}

	store, err := consent.NewStore(stateDir)
	if err != nil {
		return err
	}
	if store.HasConsent() {
		return nil
	}

	cmd.Println("Recap captures your screen, audio, microphone, and nearby Bluetooth devices.")
	cmd.Print("Do you consent to recording? [y/N]: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	answer, _ := reader.ReadString('\n')
	granted := strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y")

	if err := store.Record(granted); err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("recording requires consent")
	}
	return nil
}

func warnDeniedPermissions(cmd *cobra.Command, logger *logging.Logger) {
	status := permissions.NewProber(logger).Probe()
	for _, capability := range status.Denied() {
		cmd.Printf("warning: %s permission not granted; grant it in System Settings\n", capability)
		_ = permissions.OpenSettings(capability)
	}
}

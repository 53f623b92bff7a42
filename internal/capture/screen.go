package capture

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/recapd/recap/internal/logging"
)

// ScreenOptions configures a screen capture unit.
type ScreenOptions struct {
	OutputPath    string
	FPS           int
	MonitorIndex  int
	IncludeCursor bool
}

// ScreenUnit records the display with ffmpeg's avfoundation grabber,
// encoding through the hardware h264 encoder.
type ScreenUnit struct {
	logger *logging.Logger
	opts   ScreenOptions

	mu   sync.Mutex
	proc *procHandle
	err  error
}

// NewScreenUnit creates a screen capture unit. Nothing is launched until
// Start.
func NewScreenUnit(opts ScreenOptions, logger *logging.Logger) *ScreenUnit {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ScreenUnit{logger: logger.WithStream(string(KindScreen)), opts: opts}
}

func (u *ScreenUnit) Kind() Kind { return KindScreen }

// Start launches the ffmpeg screen grabber. It fails fast with
// ErrToolNotFound when ffmpeg is absent; the probe result is cached
// process-wide.
func (u *ScreenUnit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.proc != nil {
		return ErrAlreadyStarted
	}

	ffmpeg, err := lookupFFmpeg()
	if err != nil {
		u.err = err
		return err
	}

	cursor := "0"
	if u.opts.IncludeCursor {
		cursor = "1"
	}

	cmd := exec.Command(ffmpeg,
		"-y",
		"-f", "avfoundation",
		"-capture_cursor", cursor,
		"-framerate", strconv.Itoa(u.opts.FPS),
		"-i", fmt.Sprintf("%d:none", u.opts.MonitorIndex),
		"-c:v", "h264_videotoolbox",
		"-b:v", "5M",
		"-pix_fmt", "yuv420p",
		u.opts.OutputPath,
	)

	proc, err := startProcess(cmd, []byte("q"))
	if err != nil {
		u.err = fmt.Errorf("failed to start screen capture: %w", err)
		return u.err
	}

	u.proc = proc
	u.logger.Info("screen capture started", "output", u.opts.OutputPath, "fps", u.opts.FPS)
	return nil
}

// Stop drives the ffmpeg process through the escalating termination
// protocol and tightens the output file's permissions. The backing
// process reference is always cleared, even if every stage failed.
func (u *ScreenUnit) Stop() {
	u.mu.Lock()
	proc := u.proc
	u.proc = nil
	u.mu.Unlock()

	if proc == nil {
		return
	}

	Terminate(proc, u.logger)
	secureFile(u.opts.OutputPath)
	u.logger.Info("screen capture stopped")
}

// Err returns the last terminal error observed by this unit.
func (u *ScreenUnit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// Package notify delivers user-visible notifications and sound cues by
// shelling out to the platform tools. Every delivery is best-effort:
// failures are logged and never propagate into the recording lifecycle.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/recapd/recap/internal/logging"
)

// Sound cue names played at lifecycle transitions.
const (
	SoundStart = "/System/Library/Sounds/Glass.aiff"
	SoundStop  = "/System/Library/Sounds/Bottle.aiff"
)

// Notifier posts notifications and plays sounds. The zero value is not
// usable; construct with New.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
}

// New creates a Notifier. On platforms without the required tools it
// degrades to logging only.
func New(logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Notifier{
		logger:  logger,
		enabled: runtime.GOOS == "darwin",
	}
}

// Notify posts a user notification. Title and message are passed to
// osascript; quotes are stripped rather than escaped since notification
// text is generated internally, never user input.
func (n *Notifier) Notify(title, message string) {
	n.logger.Info("notify", "title", title, "message", message)
	if !n.enabled {
		return
	}

	script := fmt.Sprintf("display notification %q with title %q", message, title)
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		n.logger.Warn("notification delivery failed", "error", err.Error())
	}
}

// Play plays a sound cue asynchronously. A missing player or sound file is
// logged and ignored.
func (n *Notifier) Play(sound string) {
	if !n.enabled {
		return
	}

	cmd := exec.Command("afplay", sound)
	if err := cmd.Start(); err != nil {
		n.logger.Warn("sound playback failed", "sound", sound, "error", err.Error())
		return
	}
	go func() {
		_ = cmd.Wait()
	}()
}

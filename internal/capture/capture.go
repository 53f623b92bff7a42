// Package capture owns one backing resource per recording stream: an
// external ffmpeg process for screen and audio streams, and a background
// worker goroutine for Bluetooth proximity scanning. All units share a
// common start/stop contract with bounded-time guarantees on Stop.
package capture

import (
	"errors"
	"os"
	"os/exec"
	"sync"
)

// Kind identifies a capture stream.
type Kind string

const (
	KindScreen    Kind = "screen"
	KindAudio     Kind = "audio"
	KindMic       Kind = "mic"
	KindBluetooth Kind = "bluetooth"
)

// Sentinel errors returned by Unit.Start.
var (
	// ErrToolNotFound indicates the external capture tool is not installed.
	ErrToolNotFound = errors.New("ffmpeg not found (install: brew install ffmpeg)")

	// ErrDeviceNotFound indicates a required capture device is absent,
	// e.g. no loopback audio device for system audio.
	ErrDeviceNotFound = errors.New("capture device not found")

	// ErrAlreadyStarted indicates Start was called on a running unit.
	ErrAlreadyStarted = errors.New("capture unit already started")
)

// Unit is the orchestrator's handle to one stream. Start launches the
// backing resource and fails fast when a required tool or device is
// absent. Stop returns within a bounded time and always clears the
// backing resource reference. Err reports the last terminal error.
type Unit interface {
	Kind() Kind
	Start() error
	Stop()
	Err() error
}

// EventSink receives structured events from capture workers. Satisfied by
// *eventlog.Buffer.
type EventSink interface {
	LogEvent(eventType string, fields map[string]any)
}

// ffmpeg probe is cached process-wide: repeated LookPath calls per session
// start are wasteful.
var (
	ffmpegOnce sync.Once
	ffmpegPath string
	ffmpegErr  error
)

// lookupFFmpeg resolves the ffmpeg binary once per process.
func lookupFFmpeg() (string, error) {
	ffmpegOnce.Do(func() {
		path, err := exec.LookPath("ffmpeg")
		if err != nil {
			ffmpegErr = ErrToolNotFound
			return
		}
		ffmpegPath = path
	})
	return ffmpegPath, ffmpegErr
}

// secureFile tightens a produced output file to owner-only permissions.
// A missing file is ignored: a unit that failed mid-session may not have
// produced output.
func secureFile(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = os.Chmod(path, 0600)
}

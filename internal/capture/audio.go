package capture

import (
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/recapd/recap/internal/logging"
)

// AudioSource selects which audio input an AudioUnit captures.
type AudioSource int

const (
	// SourceMicrophone captures the default input device.
	SourceMicrophone AudioSource = iota
	// SourceSystem captures system output through a loopback device
	// (BlackHole on macOS).
	SourceSystem
)

// AudioOptions configures an audio capture unit.
type AudioOptions struct {
	OutputPath string
	Source     AudioSource
	SampleRate int
}

// AudioUnit records one audio stream with ffmpeg's avfoundation input.
type AudioUnit struct {
	logger *logging.Logger
	kind   Kind
	opts   AudioOptions

	mu   sync.Mutex
	proc *procHandle
	err  error
}

// NewAudioUnit creates an audio capture unit for the given source.
func NewAudioUnit(opts AudioOptions, logger *logging.Logger) *AudioUnit {
	if logger == nil {
		logger = logging.NopLogger()
	}
	kind := KindMic
	if opts.Source == SourceSystem {
		kind = KindAudio
	}
	return &AudioUnit{logger: logger.WithStream(string(kind)), kind: kind, opts: opts}
}

func (u *AudioUnit) Kind() Kind { return u.kind }

// Start launches the ffmpeg audio capture. System audio fails with
// ErrDeviceNotFound when no loopback device is installed; the stream is
// then skipped, not fatal to the session.
func (u *AudioUnit) Start() error {
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

	input := ":default"
	if u.opts.Source == SourceSystem {
		device, err := findLoopbackDevice(ffmpeg)
		if err != nil {
			u.err = err
			return err
		}
		input = ":" + device
	}

	cmd := exec.Command(ffmpeg,
		"-y",
		"-f", "avfoundation",
		"-i", input,
		"-ac", "2",
		"-ar", strconv.Itoa(u.opts.SampleRate),
		"-c:a", "pcm_s16le",
		u.opts.OutputPath,
	)

	proc, err := startProcess(cmd, []byte("q"))
	if err != nil {
		u.err = fmt.Errorf("failed to start audio capture: %w", err)
		return u.err
	}

	u.proc = proc
	u.logger.Info("audio capture started", "output", u.opts.OutputPath, "input", input)
	return nil
}

// Stop terminates the ffmpeg process and tightens the output file's
// permissions. The backing process reference is always cleared.
func (u *AudioUnit) Stop() {
	u.mu.Lock()
	proc := u.proc
	u.proc = nil
	u.mu.Unlock()

	if proc == nil {
		return
	}

	Terminate(proc, u.logger)
	secureFile(u.opts.OutputPath)
	u.logger.Info("audio capture stopped")
}

// Err returns the last terminal error observed by this unit.
func (u *AudioUnit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// avfDeviceLine matches avfoundation device listing lines, e.g.
// [AVFoundation indev @ 0x...] [2] BlackHole 2ch
var avfDeviceLine = regexp.MustCompile(`\[(\d+)\]\s+(.+)$`)

// findLoopbackDevice lists avfoundation audio devices and returns the name
// of the first loopback device. ffmpeg prints the device list to stderr
// and exits non-zero, so the command error is ignored.
func findLoopbackDevice(ffmpeg string) (string, error) {
	cmd := exec.Command(ffmpeg, "-f", "avfoundation", "-list_devices", "true", "-i", "")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	_ = cmd.Run()

	for _, line := range strings.Split(stderr.String(), "\n") {
		if !strings.Contains(line, "BlackHole") {
			continue
		}
		if m := avfDeviceLine.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2]), nil
		}
	}
	return "", fmt.Errorf("%w: no loopback audio device (install: brew install blackhole-2ch)", ErrDeviceNotFound)
}

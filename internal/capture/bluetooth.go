package capture

import (
	"context"
	"encoding/json"
	"os/exec"
	"sync"
	"time"

	"github.com/recapd/recap/internal/anonymize"
	"github.com/recapd/recap/internal/eventlog"
	"github.com/recapd/recap/internal/logging"
)

// joinTimeout bounds how long Stop waits for the scan worker to exit.
// A worker that fails to join is leaked, logged, and left for process
// exit to reap; Stop must never hang.
const joinTimeout = 5 * time.Second

// Detection is one discovered device. KnownRSSI is false when the radio
// reported no signal strength; such detections are not logged.
type Detection struct {
	Name      string
	RSSI      int
	KnownRSSI bool
}

// Scanner is the black-box device-discovery feed. Scan blocks for one
// discovery pass and honors ctx cancellation for prompt shutdown.
type Scanner interface {
	Scan(ctx context.Context) ([]Detection, error)
}

// BluetoothOptions configures a Bluetooth capture unit.
type BluetoothOptions struct {
	// ScanInterval is the pause between discovery passes (default 1s).
	ScanInterval time.Duration
	// Anonymize hashes device names with a per-unit salt before logging.
	Anonymize bool
	// Scanner overrides the discovery feed; nil selects the system
	// default.
	Scanner Scanner
}

// BluetoothUnit is the one thread-backed capture unit: a worker goroutine
// discovers nearby devices on a fixed interval and pushes detections into
// the event sink without ever blocking on disk I/O.
type BluetoothUnit struct {
	logger *logging.Logger
	sink   EventSink
	opts   BluetoothOptions

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	err     error
}

// NewBluetoothUnit creates a Bluetooth capture unit pushing events into
// sink.
func NewBluetoothUnit(opts BluetoothOptions, sink EventSink, logger *logging.Logger) *BluetoothUnit {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = time.Second
	}
	if opts.Scanner == nil {
		opts.Scanner = &systemProfilerScanner{}
	}
	return &BluetoothUnit{
		logger: logger.WithStream(string(KindBluetooth)),
		sink:   sink,
		opts:   opts,
	}
}

func (u *BluetoothUnit) Kind() Kind { return KindBluetooth }

// Start spawns the scan worker. The anonymization map and its salt are
// scoped to this start/stop cycle, so tokens are stable within a session
// and uncorrelatable across sessions.
func (u *BluetoothUnit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return ErrAlreadyStarted
	}

	var anonymizer *anonymize.Anonymizer
	if u.opts.Anonymize {
		var err error
		anonymizer, err = anonymize.New()
		if err != nil {
			u.err = err
			return err
		}
	}

	u.stop = make(chan struct{})
	u.done = make(chan struct{})
	u.running = true

	go u.run(anonymizer, u.stop, u.done)
	u.logger.Info("bluetooth monitoring started",
		"interval", u.opts.ScanInterval.String(), "anonymize", u.opts.Anonymize)
	return nil
}

// Stop signals the worker and joins it with a bounded wait. A worker that
// misses the deadline is logged and leaked rather than hanging the caller.
func (u *BluetoothUnit) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	u.running = false
	stop, done := u.stop, u.done
	u.stop, u.done = nil, nil
	u.mu.Unlock()

	close(stop)
	select {
	case <-done:
		u.logger.Info("bluetooth monitoring stopped")
	case <-time.After(joinTimeout):
		u.logger.Warn("bluetooth worker did not stop in time, leaking goroutine")
	}
}

// Err returns the last terminal error observed by this unit.
func (u *BluetoothUnit) Err() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.err
}

// run is the worker loop. Scan errors are logged and the loop continues;
// closing stop cancels an in-flight scan and wakes the interval sleep
// promptly.
func (u *BluetoothUnit) run(anonymizer *anonymize.Anonymizer, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	for {
		detections, err := u.opts.Scanner.Scan(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			u.logger.Warn("bluetooth scan error", "error", err.Error())
		}

		for _, d := range detections {
			if !d.KnownRSSI {
				continue
			}
			name := d.Name
			if anonymizer != nil {
				name = anonymizer.Anonymize(name)
			} else if name == "" {
				name = anonymize.UnknownToken
			}
			u.sink.LogEvent(eventlog.TypeBluetooth, map[string]any{
				"device": name,
				"rssi":   d.RSSI,
			})
		}

		select {
		case <-stop:
			return
		case <-time.After(u.opts.ScanInterval):
		}
	}
}

// systemProfilerScanner discovers devices by shelling out to macOS's
// system_profiler. It only reports devices for which the radio exposes a
// signal strength.
type systemProfilerScanner struct{}

func (s *systemProfilerScanner) Scan(ctx context.Context) ([]Detection, error) {
	cmd := exec.CommandContext(ctx, "system_profiler", "SPBluetoothDataType", "-json")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return parseSystemProfiler(output), nil
}

// parseSystemProfiler extracts device name/RSSI pairs from system_profiler
// JSON output. The format nests devices as {name: {props...}} objects
// under device_connected and device_not_connected lists.
func parseSystemProfiler(data []byte) []Detection {
	var report struct {
		SPBluetoothDataType []struct {
			Connected    []map[string]map[string]any `json:"device_connected"`
			NotConnected []map[string]map[string]any `json:"device_not_connected"`
		} `json:"SPBluetoothDataType"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil
	}

	var detections []Detection
	for _, controller := range report.SPBluetoothDataType {
		for _, group := range [][]map[string]map[string]any{controller.Connected, controller.NotConnected} {
			for _, devices := range group {
				for name, props := range devices {
					rssi, ok := props["device_rssi"].(float64)
					detections = append(detections, Detection{
						Name:      name,
						RSSI:      int(rssi),
						KnownRSSI: ok,
					})
				}
			}
		}
	}
	return detections
}

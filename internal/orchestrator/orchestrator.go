// Package orchestrator owns the recording session lifecycle: the state
// machine driving start/stop, the capture units for each enabled stream,
// the session event log, and crash detection across process restarts.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/recapd/recap/internal/capture"
	"github.com/recapd/recap/internal/eventlog"
	"github.com/recapd/recap/internal/logging"
	"github.com/recapd/recap/internal/statefile"
)

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRecording
	StateStopping
)

// String returns the state name for logging and status output.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyRecording indicates Start was called outside Idle.
	ErrAlreadyRecording = errors.New("a recording session is already in progress")

	// ErrNotRecording indicates Stop was called with no active session.
	ErrNotRecording = errors.New("no recording session in progress")

	// ErrNoStreamsSelected indicates Start was called with every stream
	// disabled.
	ErrNoStreamsSelected = errors.New("no capture streams selected")

	// ErrNoStreamsStarted indicates every selected stream failed to start;
	// the session is aborted and the state machine returns to Idle.
	ErrNoStreamsStarted = errors.New("no capture stream could start")

	// ErrDirectoryCollision indicates the computed session directory
	// already exists.
	ErrDirectoryCollision = errors.New("session directory already exists")
)

// Per-session file names. These are part of the on-disk session layout
// consumed by external tooling.
const (
	ReferenceTimeFile = "reference_time.json"
	EventLogFile      = "events.jsonl"
	CompleteMarker    = "COMPLETE"
	CrashMarker       = "INCOMPLETE"
)

// sessionDirFormat timestamps session directory names; the prefix defaults
// to "recording" and can be overridden per session.
const sessionDirFormat = "20060102_150405"

// UnitFactory builds the capture unit for one stream kind, writing its
// output under sessionDir and pushing events into sink.
type UnitFactory func(kind capture.Kind, sessionDir string, sink capture.EventSink) capture.Unit

// Notifier delivers user-visible notifications. Satisfied by
// *notify.Notifier.
type Notifier interface {
	Notify(title, message string)
}

// Session describes one active recording.
type Session struct {
	Dir       string
	Streams   []capture.Kind
	StartWall time.Time
	StartMono int64
}

// Duration returns the elapsed recording time on the monotonic clock.
func (s *Session) Duration() time.Duration {
	return time.Duration(eventlog.MonotonicNow() - s.StartMono)
}

// StartReport aggregates per-stream start outcomes. Failed streams are
// reported, not fatal: a session with at least one started stream records.
type StartReport struct {
	Started []capture.Kind
	Failed  map[capture.Kind]error
}

// Options configures an Orchestrator.
type Options struct {
	// OutputDir is the root under which session directories are created.
	OutputDir string
	// Name optionally replaces the default "recording" session directory
	// prefix.
	Name string
	// Streams lists the enabled stream kinds.
	Streams []capture.Kind
	// NewUnit builds the capture unit for a stream kind.
	NewUnit UnitFactory
	// Notifier receives crash-recovery notifications. Optional.
	Notifier Notifier
}

// Orchestrator is the top-level session state machine. It exclusively owns
// the capture units, the event buffer, and the state store; the TUI and
// the signal handler both go through Start/Stop and never touch units
// directly.
type Orchestrator struct {
	logger *logging.Logger
	store  *statefile.Store
	opts   Options

	mu      sync.Mutex
	state   State
	session *Session
	units   []capture.Unit
	buffer  *eventlog.Buffer
}

// New creates an Orchestrator in Idle.
func New(opts Options, store *statefile.Store, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{
		logger: logger,
		store:  store,
		opts:   opts,
		state:  StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns a snapshot of the active session, or nil when idle.
func (o *Orchestrator) Session() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	snapshot := *o.session
	return &snapshot
}

// Start begins a recording session: it allocates the session directory
// with owner-only permissions, persists the crash-detection record, writes
// the reference time file, opens the event log, and starts every selected
// stream. Streams that fail to start are reported in the StartReport and
// skipped; the session records as long as at least one stream started.
func (o *Orchestrator) Start(ctx context.Context) (*StartReport, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	if len(o.opts.Streams) == 0 {
		o.mu.Unlock()
		return nil, ErrNoStreamsSelected
	}
	o.state = StateStarting
	o.mu.Unlock()

	report, session, err := o.start(ctx)

	o.mu.Lock()
	if err != nil {
		o.state = StateIdle
	} else {
		o.state = StateRecording
		o.session = session
	}
	o.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return report, nil
}

func (o *Orchestrator) start(ctx context.Context) (*StartReport, *Session, error) {
	startWall := time.Now()
	startMono := eventlog.MonotonicNow()

	prefix := o.opts.Name
	if prefix == "" {
		prefix = "recording"
	}
	sessionDir := filepath.Join(o.opts.OutputDir,
		prefix+"_"+startWall.Format(sessionDirFormat))
	if err := o.createSessionDir(sessionDir); err != nil {
		return nil, nil, err
	}

	if err := writeReferenceTime(sessionDir, startWall, startMono); err != nil {
		return nil, nil, err
	}

	logFile, err := os.OpenFile(filepath.Join(sessionDir, EventLogFile),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}
	buffer := eventlog.NewBuffer(logFile, o.logger)

	if err := o.store.Save(statefile.Record{
		IsRecording: true,
		SessionDir:  sessionDir,
		StartTime:   startWall.Unix(),
		PID:         os.Getpid(),
	}); err != nil {
		buffer.Close()
		return nil, nil, fmt.Errorf("failed to persist session state: %w", err)
	}

	report := &StartReport{Failed: make(map[capture.Kind]error)}
	var units []capture.Unit
	for _, kind := range o.opts.Streams {
		if ctx.Err() != nil {
			break
		}
		unit := o.opts.NewUnit(kind, sessionDir, buffer)
		if unit == nil {
			report.Failed[kind] = fmt.Errorf("unknown stream kind %q", kind)
			continue
		}
		if err := unit.Start(); err != nil {
			o.logger.Warn("stream failed to start",
				"stream", string(kind), "error", err.Error())
			report.Failed[kind] = err
			continue
		}
		report.Started = append(report.Started, kind)
		units = append(units, unit)
	}

	if len(units) == 0 {
		buffer.Close()
		o.store.Clear()
		return nil, nil, fmt.Errorf("%w: %s", ErrNoStreamsStarted, describeFailures(report.Failed))
	}

	streams := make([]string, len(report.Started))
	for i, kind := range report.Started {
		streams[i] = string(kind)
	}
	buffer.LogEvent(eventlog.TypeRecording, map[string]any{
		"action":  "start",
		"streams": streams,
	})

	o.logger.Info("recording started", "dir", sessionDir, "streams", streams)

	o.buffer = buffer
	o.units = units
	session := &Session{
		Dir:       sessionDir,
		Streams:   report.Started,
		StartWall: startWall,
		StartMono: startMono,
	}
	return report, session, nil
}

// Stop ends the active session. Only the caller that observes Recording
// proceeds, so a user stop racing a signal-handler stop tears the session
// down exactly once. The lifecycle stop event is flushed before any unit
// teardown begins, making it the last event of the session log.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.state != StateRecording {
		o.mu.Unlock()
		return ErrNotRecording
	}
	o.state = StateStopping
	session := o.session
	units := o.units
	buffer := o.buffer
	o.session = nil
	o.units = nil
	o.buffer = nil
	o.mu.Unlock()

	duration := session.Duration()
	buffer.LogEvent(eventlog.TypeRecording, map[string]any{
		"action":           "stop",
		"duration_seconds": int64(duration.Seconds()),
	})

	for _, unit := range units {
		unit.Stop()
	}

	if err := buffer.Close(); err != nil {
		o.logger.Error("failed to close event log", "error", err.Error())
	}

	if err := writeCompletionMarker(session.Dir, duration); err != nil {
		o.logger.Error("failed to write completion marker", "error", err.Error())
	}

	if err := o.store.Clear(); err != nil {
		o.logger.Error("failed to clear session state", "error", err.Error())
	}

	o.logger.Info("recording stopped",
		"dir", session.Dir, "duration", duration.String())

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
	return nil
}

// RecoverOnStartup detects a session abandoned by a crashed process. It
// must run once, before any Start. When the persisted record points at an
// existing session directory, the directory is marked with a crash
// indicator and the user is notified. The record is cleared in all cases:
// at startup it is stale by definition.
func (o *Orchestrator) RecoverOnStartup() (string, bool) {
	rec, ok := o.store.Load()
	if !ok {
		return "", false
	}

	recovered := false
	if rec.SessionDir != "" {
		if _, err := os.Stat(rec.SessionDir); err == nil {
			o.markCrashed(rec)
			recovered = true
		}
	}

	if err := o.store.Clear(); err != nil {
		o.logger.Error("failed to clear stale session state", "error", err.Error())
	}

	if !recovered {
		return "", false
	}
	return rec.SessionDir, true
}

func (o *Orchestrator) markCrashed(rec statefile.Record) {
	marker := filepath.Join(rec.SessionDir, CrashMarker)
	content := fmt.Sprintf("Recording interrupted, detected at %s\n",
		time.Now().Format(time.RFC3339))
	if err := os.WriteFile(marker, []byte(content), 0600); err != nil {
		o.logger.Error("failed to write crash marker",
			"dir", rec.SessionDir, "error", err.Error())
	}

	o.logger.Warn("recovered crashed session",
		"dir", rec.SessionDir, "pid", rec.PID)
	if o.opts.Notifier != nil {
		o.opts.Notifier.Notify("Recording interrupted",
			fmt.Sprintf("The previous session did not finish cleanly: %s",
				filepath.Base(rec.SessionDir)))
	}
}

func (o *Orchestrator) createSessionDir(dir string) error {
	if err := os.MkdirAll(o.opts.OutputDir, 0700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Mkdir(dir, 0700); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrDirectoryCollision, dir)
		}
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	// Mkdir permissions pass through umask; restate them explicitly so the
	// directory is owner-only before any capture data lands in it.
	if err := os.Chmod(dir, 0700); err != nil {
		return fmt.Errorf("failed to restrict session directory: %w", err)
	}
	return nil
}

// writeReferenceTime records the session's wall/monotonic epoch pair for
// downstream A/V synchronization tooling.
func writeReferenceTime(sessionDir string, wall time.Time, mono int64) error {
	payload := map[string]any{
		"wall_ns":      wall.UnixNano(),
		"monotonic_ns": mono,
		"iso":          wall.Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode reference time: %w", err)
	}
	path := filepath.Join(sessionDir, ReferenceTimeFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write reference time: %w", err)
	}
	return nil
}

// writeCompletionMarker enumerates the files the session actually produced
// and stamps the clean-stop marker. Its absence, combined with a crash
// marker, identifies an abandoned session.
func writeCompletionMarker(sessionDir string, duration time.Duration) error {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return fmt.Errorf("failed to list session directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == CompleteMarker {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	payload := map[string]any{
		"completed_at":     time.Now().Format(time.RFC3339),
		"duration_seconds": int64(duration.Seconds()),
		"files":            files,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode completion marker: %w", err)
	}
	path := filepath.Join(sessionDir, CompleteMarker)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write completion marker: %w", err)
	}
	return nil
}

func describeFailures(failed map[capture.Kind]error) string {
	if len(failed) == 0 {
		return "no streams selected"
	}
	kinds := make([]string, 0, len(failed))
	for kind := range failed {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	msg := ""
	for i, kind := range kinds {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %v", kind, failed[capture.Kind(kind)])
	}
	return msg
}

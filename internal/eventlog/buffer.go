// Package eventlog buffers structured session events and writes them to an
// append-only JSON-lines log. Producers (capture workers, the orchestrator)
// must never block on disk I/O, and no event may be silently lost while the
// log file remains open.
package eventlog

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/recapd/recap/internal/logging"
)

const (
	// flushCount triggers a flush once this many events are buffered.
	flushCount = 100
	// flushInterval triggers a flush once this much time has passed since
	// the previous flush.
	flushInterval = time.Second
)

// Buffer accumulates events under a single mutex and flushes them to the
// log writer. The flush decision is made under the lock; the file I/O
// happens outside it so slow disk writes never stall producers.
type Buffer struct {
	logger *logging.Logger

	mu        sync.Mutex
	events    []Event
	lastFlush time.Time
	closed    bool

	// writeMu serializes writers so two flushes cannot interleave lines.
	writeMu sync.Mutex
	w       io.WriteCloser
}

// NewBuffer creates a Buffer writing to w. The caller keeps ownership of
// opening w with the right permissions; the Buffer owns closing it.
// lastFlush is initialized here so the time-based trigger never reads an
// unset value on the first event.
func NewBuffer(w io.WriteCloser, logger *logging.Logger) *Buffer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Buffer{
		logger:    logger,
		w:         w,
		lastFlush: time.Now(),
	}
}

// LogEvent appends an event to the buffer and flushes when any trigger
// fires: buffer size reached flushCount, the event is a lifecycle-critical
// recording event, or flushInterval has elapsed since the last flush.
func (b *Buffer) LogEvent(eventType string, fields map[string]any) {
	event := NewEvent(eventType, fields)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.events = append(b.events, event)
	shouldFlush := len(b.events) >= flushCount ||
		eventType == TypeRecording ||
		time.Since(b.lastFlush) >= flushInterval
	b.mu.Unlock()

	if shouldFlush {
		b.Flush()
	}
}

// Len returns the number of buffered, unflushed events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush swaps out the buffered events under lock and writes each as one
// JSON line outside the lock. Events that fail to write are re-queued for
// a later retry; the log may reorder relative to wall-clock order under
// retry but never drops an event.
func (b *Buffer) Flush() error {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.lastFlush = time.Now()
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var failed []Event
	var firstErr error

	b.writeMu.Lock()
	for _, event := range pending {
		line, err := json.Marshal(event)
		if err != nil {
			// Unserializable payloads cannot succeed on retry; log and drop.
			b.logger.Error("failed to encode event", "type", event.Type, "error", err.Error())
			continue
		}
		if _, err := b.w.Write(append(line, '\n')); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, event)
		}
	}
	b.writeMu.Unlock()

	if len(failed) > 0 {
		b.logger.Error("failed to write events, re-queued for retry",
			"count", len(failed), "error", firstErr.Error())
		b.mu.Lock()
		b.events = append(b.events, failed...)
		b.mu.Unlock()
		return fmt.Errorf("failed to write %d events: %w", len(failed), firstErr)
	}
	return nil
}

// Close performs a final flush and closes the log writer. The flush is
// retried briefly with backoff so a transient I/O error does not lose the
// tail of the session.
func (b *Buffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 2 * time.Second

	flushErr := backoff.Retry(b.Flush, policy)
	if flushErr != nil {
		b.logger.Error("final flush failed, events lost on close", "error", flushErr.Error())
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.w.Close(); err != nil {
		return fmt.Errorf("failed to close event log: %w", err)
	}
	return flushErr
}

package eventlog

import (
	"encoding/json"
	"time"
)

// Event types emitted during a session. TypeRecording marks lifecycle
// transitions (start/stop) and is flushed immediately, never batched.
const (
	TypeRecording = "recording"
	TypeBluetooth = "bluetooth"
)

// monotonicBase anchors monotonic timestamps. time.Since reads the runtime's
// monotonic clock, so durations derived from these values are immune to
// wall-clock adjustments.
var monotonicBase = time.Now()

// MonotonicNow returns nanoseconds elapsed on the monotonic clock since
// process start.
func MonotonicNow() int64 {
	return time.Since(monotonicBase).Nanoseconds()
}

// Event is one immutable record in the session log. Fields carry the
// kind-specific payload and are flattened into the serialized object.
type Event struct {
	TS          int64
	TSMonotonic int64
	Type        string
	Fields      map[string]any
}

// NewEvent stamps an event with the current wall-clock and monotonic times.
func NewEvent(eventType string, fields map[string]any) Event {
	return Event{
		TS:          time.Now().UnixNano(),
		TSMonotonic: MonotonicNow(),
		Type:        eventType,
		Fields:      fields,
	}
}

// MarshalJSON flattens the event into a single object:
// {"ts": ..., "ts_monotonic": ..., "type": ..., <fields>...}.
func (e Event) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["ts"] = e.TS
	obj["ts_monotonic"] = e.TSMonotonic
	obj["type"] = e.Type
	return json.Marshal(obj)
}

// Package telemetry provides a JSONL event stream for recording the stages
// of an ordering-enumeration run. Each strategy call, deduplication pass,
// provenance lookup, and the final graph are recorded as structured JSON
// events, so a run can be audited after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart          = "run_start"
	KindStrategyStart     = "strategy_start"
	KindStrategyDone      = "strategy_done"
	KindDuplicatesRemoved = "duplicates_removed"
	KindProvenance        = "provenance"
	KindGraphBuilt        = "graph_built"
	KindRunFailed         = "run_failed"
)

// Event represents a single telemetry record.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	RunID     string    `json:"run,omitempty"`
	Strategy  string    `json:"strategy,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// sink is the file shared by an Emitter and every run view derived from it.
type sink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
//
// Emitters returned by ForRun share the file of their parent but carry
// their own run id, so concurrent runs never relabel each other's events.
type Emitter struct {
	sink  *sink
	runID string
	now   func() time.Time
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it does.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		sink: &sink{file: f, enc: json.NewEncoder(f)},
		now:  time.Now,
	}, nil
}

// ForRun returns an emitter writing to the same file that stamps id on
// every event without a run id of its own. The receiver is not modified.
// ForRun on a nil Emitter returns nil.
func (e *Emitter) ForRun(id string) *Emitter {
	if e == nil {
		return nil
	}
	return &Emitter{sink: e.sink, runID: id, now: e.now}
}

// RunID returns the run id stamped by this emitter.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit writes a single event to the JSONL file. A zero Timestamp is filled
// with the current time. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if evt.RunID == "" {
		evt.RunID = e.runID
	}
	e.sink.mu.Lock()
	defer e.sink.mu.Unlock()
	if err := e.sink.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is Emit for callers that have nowhere to report a write failure.
func (e *Emitter) Record(kind, strategy string, data any) {
	_ = e.Emit(Event{Kind: kind, Strategy: strategy, Data: data})
}

// Close closes the underlying file, which also ends every emitter derived
// from it with ForRun. Calling Close on a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.sink.mu.Lock()
	defer e.sink.mu.Unlock()
	if err := e.sink.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}

// FormatLine decodes a JSONL line and returns a human-readable rendering.
// Lines that do not decode are returned prefixed with "???".
func FormatLine(line string) string {
	var evt Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		return "??? " + line
	}

	parts := []string{fmt.Sprintf("[%s]", evt.Timestamp.Format(time.TimeOnly)), evt.Kind}
	if evt.RunID != "" {
		parts = append(parts, "run="+evt.RunID)
	}
	if evt.Strategy != "" {
		parts = append(parts, "strategy="+evt.Strategy)
	}
	if evt.Data != nil {
		if m, ok := evt.Data.(map[string]any); ok {
			parts = append(parts, formatDataMap(m))
		} else {
			data, _ := json.Marshal(evt.Data)
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, " ")
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}

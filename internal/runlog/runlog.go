// Package runlog provides per-run structured logging for period sweeps.
//
// Each run gets one JSONL file named after its run ID. Events capture the sweep
// parameters, every (N, period) record in ascending N, per-N failures and a closing
// summary, so a run can be audited or diffed against another without re-running it.
//
// Design constraints:
//   - All RunLog methods are nil-safe (no-op on nil receiver) so callers don't need
//     nil checks before every log call.
//   - Registry is the sole owner of JSONL persistence; callers never open files.
package runlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/haricheung/catperiod/internal/types"
)

// EventKind labels a single structured event in the run log.
type EventKind string

const (
	KindRunBegin EventKind = "run_begin"
	KindPeriod   EventKind = "period"
	KindFailure  EventKind = "failure"
	KindRunEnd   EventKind = "run_end"
)

// Event is one JSONL line in the run log.
// Fields are omitempty so each event only serialises relevant data.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp string    `json:"ts"`

	// run_begin / run_end
	RunID     string `json:"run_id,omitempty"`
	Low       int    `json:"low,omitempty"`
	High      int    `json:"high,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	Policy    string `json:"policy,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	Status    string `json:"status,omitempty"` // "complete" | "partial" | "aborted"
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Periods   int    `json:"periods,omitempty"`
	Failures  int    `json:"failures,omitempty"`
	ShortN    int    `json:"short,omitempty"`
	CachedN   int    `json:"cached,omitempty"`
	Error     string `json:"error,omitempty"`

	// period / failure
	N         int    `json:"n,omitempty"`
	Classical int    `json:"classical,omitempty"`
	Quantum   int    `json:"quantum,omitempty"`
	Short     *bool  `json:"is_short,omitempty"` // pointer: false must be serialised
	Reason    string `json:"reason,omitempty"`
}

// Params describes the sweep recorded in run_begin.
type Params struct {
	Low      int
	High     int
	Workers  int
	Policy   string
	Strategy string
}

// Summary is recorded in run_end.
type Summary struct {
	Status   string
	Periods  int
	Failures int
	Short    int
	Cached   int
	Err      error
}

// RunLog is a handle for writing structured events for one run.
//
// Expectations:
//   - All methods are nil-safe (no-op when called on nil *RunLog)
//   - Concurrent writes are safe (mutex-protected)
type RunLog struct {
	runID   string
	started time.Time
	mu      sync.Mutex
	f       *os.File
}

// Registry maps run IDs to open RunLogs.
//
// Expectations:
//   - Open creates the log directory if absent
//   - Open writes a run_begin event as the first JSONL line
//   - Open returns the existing log without re-opening when called twice for the same run ID
//   - Close writes run_end with status and elapsed_ms, then closes the file
//   - Close no-ops gracefully when the run ID is not registered
type Registry struct {
	dir  string
	mu   sync.Mutex
	logs map[string]*RunLog
}

// NewRegistry creates a Registry that writes one JSONL file per run under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir, logs: make(map[string]*RunLog)}
}

// Path returns the JSONL path for runID.
func (r *Registry) Path(runID string) string {
	return filepath.Join(r.dir, runID+".jsonl")
}

// Open creates a new RunLog for runID and writes run_begin.
// Returns nil (a valid no-op log) when the file cannot be created.
func (r *Registry) Open(runID string, p Params) *RunLog {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok := r.logs[runID]; ok {
		return rl
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		slog.Error("[RUNLOG] could not create dir", "dir", r.dir, "error", err)
		return nil
	}
	path := r.Path(runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("[RUNLOG] could not open log file", "path", path, "error", err)
		return nil
	}
	rl := &RunLog{runID: runID, started: time.Now(), f: f}
	r.logs[runID] = rl
	rl.write(Event{
		Kind:     KindRunBegin,
		RunID:    runID,
		Low:      p.Low,
		High:     p.High,
		Workers:  p.Workers,
		Policy:   p.Policy,
		Strategy: p.Strategy,
	})
	return rl
}

// Close writes run_end and closes the file. Safe on a nil *Registry or unknown run ID.
func (r *Registry) Close(runID string, s Summary) {
	if r == nil {
		return
	}
	r.mu.Lock()
	rl, ok := r.logs[runID]
	delete(r.logs, runID)
	r.mu.Unlock()
	if !ok {
		return
	}

	ev := Event{
		Kind:      KindRunEnd,
		RunID:     runID,
		Status:    s.Status,
		ElapsedMs: time.Since(rl.started).Milliseconds(),
		Periods:   s.Periods,
		Failures:  s.Failures,
		ShortN:    s.Short,
		CachedN:   s.Cached,
	}
	if s.Err != nil {
		ev.Error = s.Err.Error()
	}
	rl.write(ev)

	rl.mu.Lock()
	if rl.f != nil {
		_ = rl.f.Close()
		rl.f = nil
	}
	rl.mu.Unlock()
}

// Period writes a period event.
func (rl *RunLog) Period(p types.Period, short bool) {
	if rl == nil {
		return
	}
	s := short
	rl.write(Event{
		Kind:      KindPeriod,
		N:         p.N,
		Classical: p.Classical,
		Quantum:   p.Quantum,
		Short:     &s,
	})
}

// Failure writes a failure event.
func (rl *RunLog) Failure(f types.Failure) {
	if rl == nil {
		return
	}
	rl.write(Event{Kind: KindFailure, N: f.N, Reason: f.Reason})
}

// write appends one JSON line to the run log file. Adds timestamp, mutex-protected.
func (rl *RunLog) write(e Event) {
	e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := sonnet.Marshal(e)
	if err != nil {
		slog.Error("[RUNLOG] marshal event", "error", err)
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.f == nil {
		return
	}
	if _, err = fmt.Fprintf(rl.f, "%s\n", data); err != nil {
		slog.Error("[RUNLOG] write event", "error", err)
	}
}

package types

import "time"

// Component identifiers used as message senders on the bus
type Component string

const (
	CompOrchestrator Component = "batch"
	CompWorker       Component = "worker"
	CompStore        Component = "store"
	CompEmitter      Component = "emitter"
	CompUser         Component = "user"
)

// MessageType identifies the payload type of a bus message
type MessageType string

const (
	MsgBatchBegin   MessageType = "BatchBegin"
	MsgPeriodFound  MessageType = "PeriodFound"
	MsgPeriodFailed MessageType = "PeriodFailed"
	MsgBatchEnd     MessageType = "BatchEnd"
)

// Message is the envelope for all progress traffic on the bus
type Message struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	From      Component   `json:"from"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
}

// Period is the result of the order search for a single modulus N.
// Quantum is either Classical or 2*Classical.
type Period struct {
	N         int  `json:"n"`
	Classical int  `json:"classical"`
	Quantum   int  `json:"quantum"`
	Cached    bool `json:"cached,omitempty"` // served from the persistent cache; not persisted itself
}

// Failure records why the order search for one N did not produce a Period.
type Failure struct {
	N      int    `json:"n"`
	Reason string `json:"reason"`
}

// BatchBegin is published once before any task is dispatched.
type BatchBegin struct {
	RunID   string `json:"run_id"`
	Low     int    `json:"low"`
	High    int    `json:"high"`
	Workers int    `json:"workers"`
	Policy  string `json:"policy"`
}

// BatchEnd is published after the join barrier, whether or not the batch succeeded.
type BatchEnd struct {
	RunID     string `json:"run_id"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Err       string `json:"error,omitempty"`
}

// Datasets is the three-way partition handed to the emitters.
// All is ascending in N; Short is the ordered subsequence of All classified as short;
// DegenerateNs holds exactly the N values of Short, in the same order.
type Datasets struct {
	Low          int      `json:"low"`
	High         int      `json:"high"`
	All          []Period `json:"all"`
	Short        []Period `json:"short"`
	DegenerateNs []int    `json:"degenerate_ns"`
}

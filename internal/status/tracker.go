// ABOUTME: Thread-safe task status tracker with a monotonic state machine
// ABOUTME: Terminal records are retained until read at least once, then swept by TTL

package status

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotFound is returned when polling an unknown task id.
var ErrNotFound = errors.New("task not found")

// ErrInvalidTransition is returned when a state change would violate the
// queued -> processing -> completed|failed machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// State is a task's lifecycle state.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TaskStatus is the externally visible record for one task. Result is set
// only for completed tasks, Error only for failed ones.
type TaskStatus struct {
	TaskID         string     `json:"task_id"`
	ConversationID string     `json:"conversation_id"`
	State          State      `json:"state"`
	Result         any        `json:"result,omitempty"`
	Error          string     `json:"error,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type trackedStatus struct {
	TaskStatus
	retrieved bool // terminal record has been read at least once
}

// abandonedFactor multiplies the retention TTL for terminal records nobody
// ever polled; past that horizon the first-read guarantee is waived.
const abandonedFactor = 24

// Tracker owns every TaskStatus for the task's visible lifetime. The
// dispatcher writes queued entries, the assigned worker drives the
// processing and terminal transitions, and polling clients read.
type Tracker struct {
	mu        sync.RWMutex
	tasks     map[string]*trackedStatus
	retention time.Duration
	logger    *slog.Logger
	done      chan struct{}
	closed    bool
}

// NewTracker creates a tracker and starts its background eviction sweep.
// Retention bounds how long terminal records outlive their first read.
func NewTracker(retention time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	t := &Tracker{
		tasks:     make(map[string]*trackedStatus),
		retention: retention,
		logger:    logger.With("component", "status-tracker"),
		done:      make(chan struct{}),
	}
	go t.sweep()
	return t
}

// Register records a new task in the queued state. Called synchronously
// during submission so a poll immediately after submit never misses.
func (t *Tracker) Register(taskID, conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks[taskID] = &trackedStatus{
		TaskStatus: TaskStatus{
			TaskID:         taskID,
			ConversationID: conversationID,
			State:          StateQueued,
			SubmittedAt:    time.Now().UTC(),
		},
	}
}

// Remove drops a status record regardless of state. Used to roll back a
// registration that could not be enqueued.
func (t *Tracker) Remove(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, taskID)
}

// MarkProcessing transitions a queued task to processing and stamps started_at.
func (t *Tracker) MarkProcessing(taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if rec.State != StateQueued {
		return fmt.Errorf("%w: %s -> processing", ErrInvalidTransition, rec.State)
	}
	now := time.Now().UTC()
	rec.State = StateProcessing
	rec.StartedAt = &now
	return nil
}

// MarkCompleted transitions a processing task to completed with its result.
func (t *Tracker) MarkCompleted(taskID string, result any) error {
	return t.finish(taskID, StateCompleted, result, "")
}

// MarkFailed transitions a processing task to failed with an error message.
func (t *Tracker) MarkFailed(taskID, errMsg string) error {
	return t.finish(taskID, StateFailed, nil, errMsg)
}

func (t *Tracker) finish(taskID string, state State, result any, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if rec.State != StateProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.State, state)
	}
	now := time.Now().UTC()
	rec.State = state
	rec.Result = result
	rec.Error = errMsg
	rec.FinishedAt = &now
	return nil
}

// Get returns a copy of the task's status. Reading a terminal status is
// idempotent; the first read releases the record for eventual eviction.
func (t *Tracker) Get(taskID string) (*TaskStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.State.Terminal() {
		rec.retrieved = true
	}
	copied := rec.TaskStatus
	return &copied, nil
}

// Len reports how many status records are currently held.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tasks)
}

// sweep periodically evicts old terminal records. Non-terminal records and
// unread terminal records inside the abandoned horizon are never touched.
func (t *Tracker) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.runSweep(time.Now().UTC())
		case <-t.done:
			return
		}
	}
}

// runSweep applies the eviction policy at the given instant.
func (t *Tracker) runSweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, rec := range t.tasks {
		if !rec.State.Terminal() || rec.FinishedAt == nil {
			continue
		}
		age := now.Sub(*rec.FinishedAt)
		if (rec.retrieved && age > t.retention) ||
			(!rec.retrieved && age > abandonedFactor*t.retention) {
			delete(t.tasks, id)
			evicted++
		}
	}
	if evicted > 0 {
		t.logger.Debug("evicted terminal task statuses", "count", evicted)
	}
}

// Close stops the background sweep. Safe to call multiple times.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		close(t.done)
		t.closed = true
	}
}

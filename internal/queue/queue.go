// ABOUTME: Bounded in-process task queue with a fixed worker pool
// ABOUTME: A per-conversation admission slot keeps one in-flight task per conversation

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/querydeck/internal/status"
)

// ErrQueueFull is returned by Submit when outstanding tasks have reached
// the configured capacity.
var ErrQueueFull = errors.New("queue full")

// ErrNotRunning is returned by Submit before Start or after Shutdown.
var ErrNotRunning = errors.New("queue is not running")

// DefaultCapacity bounds outstanding (non-terminal) tasks.
const DefaultCapacity = 50

// DefaultWorkers is the size of the worker pool.
const DefaultWorkers = 2

// Task is one unit of work: a single submitted message awaiting processing.
type Task struct {
	ID             string
	ConversationID string
	Input          string // context-enriched question text
	SubmittedAt    time.Time
}

// Processor handles one task. The returned payload becomes the completed
// status result; a returned error becomes the failed status message. The
// processor writes its own assistant messages, including error messages.
type Processor interface {
	Process(ctx context.Context, task *Task) (any, error)
}

// Config sizes the queue.
type Config struct {
	Capacity int // max outstanding tasks; DefaultCapacity when zero
	Workers  int // pool size; DefaultWorkers when zero
}

// convState partitions a conversation's tasks: at most one sits in the
// global ready channel while the rest wait here in submission order. This
// is what serializes processing per conversation without busy-waiting.
type convState struct {
	inflight bool
	pending  []*Task
}

// Queue accepts tasks, bounds them, and dispatches them to a fixed pool of
// workers. Tasks from different conversations run in parallel; tasks from
// one conversation run strictly in submission order.
type Queue struct {
	mu          sync.Mutex
	capacity    int
	workers     int
	outstanding int // queued + blocked + processing
	convs       map[string]*convState
	ready       chan *Task
	running     bool

	processor Processor
	tracker   *status.Tracker
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a queue. Start must be called before Submit.
func New(processor Processor, tracker *status.Tracker, cfg Config, logger *slog.Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		capacity:  cfg.Capacity,
		workers:   cfg.Workers,
		convs:     make(map[string]*convState),
		ready:     make(chan *Task, cfg.Capacity),
		processor: processor,
		tracker:   tracker,
		logger:    logger.With("component", "queue"),
	}
}

// Start launches the worker pool. Workers run until Shutdown.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel
	q.running = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(workerCtx, i)
	}
	q.logger.Info("worker pool started", "workers", q.workers, "capacity", q.capacity)
}

// Submit accepts one task for the conversation and registers its queued
// status before returning, so an immediate poll always finds it. Fails with
// ErrQueueFull at capacity without registering anything.
func (q *Queue) Submit(conversationID, input string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return "", ErrNotRunning
	}
	if q.outstanding >= q.capacity {
		return "", fmt.Errorf("%w: %d outstanding tasks", ErrQueueFull, q.outstanding)
	}

	task := &Task{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Input:          input,
		SubmittedAt:    time.Now().UTC(),
	}
	q.outstanding++
	q.tracker.Register(task.ID, conversationID)

	cs := q.convs[conversationID]
	if cs == nil {
		cs = &convState{}
		q.convs[conversationID] = cs
	}
	if cs.inflight {
		cs.pending = append(cs.pending, task)
		q.logger.Debug("task blocked behind in-flight conversation task",
			"task_id", task.ID,
			"conversation_id", conversationID,
			"pending", len(cs.pending))
	} else {
		cs.inflight = true
		q.ready <- task // buffered to capacity, never blocks
		q.logger.Debug("task queued", "task_id", task.ID, "conversation_id", conversationID)
	}

	return task.ID, nil
}

// Depth reports outstanding tasks and the configured capacity.
func (q *Queue) Depth() (outstanding, capacity int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outstanding, q.capacity
}

// Workers reports the pool size.
func (q *Queue) Workers() int {
	return q.workers
}

// Running reports whether the queue currently accepts submissions.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// worker pulls ready tasks until the pool shuts down.
func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger := q.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped")
			return
		case task := <-q.ready:
			q.run(ctx, task, logger)
		}
	}
}

// run drives one task through the status machine. Failures and panics are
// contained here: they mark the task failed and never take the worker down,
// and the conversation's admission slot is released on every path.
func (q *Queue) run(ctx context.Context, task *Task, logger *slog.Logger) {
	defer q.finish(task.ConversationID)

	if err := q.tracker.MarkProcessing(task.ID); err != nil {
		logger.Error("cannot mark task processing", "task_id", task.ID, "error", err)
		return
	}
	logger.Debug("processing task", "task_id", task.ID, "conversation_id", task.ConversationID)

	result, err := q.invoke(ctx, task)
	if err != nil {
		logger.Warn("task failed", "task_id", task.ID, "error", err)
		if terr := q.tracker.MarkFailed(task.ID, err.Error()); terr != nil {
			logger.Error("cannot mark task failed", "task_id", task.ID, "error", terr)
		}
		return
	}

	if terr := q.tracker.MarkCompleted(task.ID, result); terr != nil {
		logger.Error("cannot mark task completed", "task_id", task.ID, "error", terr)
		return
	}
	logger.Debug("task completed", "task_id", task.ID)
}

// invoke calls the processor with panic containment.
func (q *Queue) invoke(ctx context.Context, task *Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return q.processor.Process(ctx, task)
}

// finish releases the conversation's admission slot and promotes the next
// blocked task, keeping per-conversation submission order.
func (q *Queue) finish(conversationID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.outstanding--
	cs := q.convs[conversationID]
	if cs == nil {
		return
	}
	if len(cs.pending) > 0 {
		next := cs.pending[0]
		cs.pending = cs.pending[1:]
		q.ready <- next
		q.logger.Debug("promoted blocked task",
			"task_id", next.ID,
			"conversation_id", conversationID)
		return
	}
	delete(q.convs, conversationID)
}

// Shutdown stops intake, waits for outstanding tasks to drain, then joins
// the workers. If ctx expires first, in-flight work is cancelled.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			q.mu.Lock()
			n := q.outstanding
			q.mu.Unlock()
			if n == 0 {
				close(drained)
				return
			}
		}
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
	}

	q.cancel()
	q.wg.Wait()
	if err != nil {
		q.logger.Warn("queue shut down before draining", "error", err)
	} else {
		q.logger.Info("queue drained and stopped")
	}
	return err
}

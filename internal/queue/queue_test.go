// ABOUTME: Tests for the bounded queue and worker pool
// ABOUTME: Verifies per-conversation ordering, capacity admission, and failure isolation

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/querydeck/internal/status"
)

type funcProcessor struct {
	fn func(ctx context.Context, task *Task) (any, error)
}

func (p *funcProcessor) Process(ctx context.Context, task *Task) (any, error) {
	return p.fn(ctx, task)
}

func newTestQueue(t *testing.T, proc Processor, cfg Config) (*Queue, *status.Tracker) {
	tr := status.NewTracker(time.Hour, nil)
	t.Cleanup(tr.Close)

	q := New(proc, tr, cfg, nil)
	q.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	})
	return q, tr
}

func waitTerminal(t *testing.T, tr *status.Tracker, taskID string) *status.TaskStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := tr.Get(taskID)
		require.NoError(t, err)
		if st.State.Terminal() {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never reached a terminal state", taskID)
	return nil
}

func TestQueue_SubmitBeforeStart(t *testing.T) {
	tr := status.NewTracker(time.Hour, nil)
	t.Cleanup(tr.Close)

	q := New(&funcProcessor{fn: func(context.Context, *Task) (any, error) { return nil, nil }}, tr, Config{}, nil)
	_, err := q.Submit("conv-1", "hello")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestQueue_ProcessesTask(t *testing.T) {
	proc := &funcProcessor{fn: func(_ context.Context, task *Task) (any, error) {
		return map[string]any{"echo": task.Input}, nil
	}}
	q, tr := newTestQueue(t, proc, Config{})

	id, err := q.Submit("conv-1", "total sales by region")
	require.NoError(t, err)

	// Status is visible immediately after Submit returns.
	st, err := tr.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "conv-1", st.ConversationID)

	st = waitTerminal(t, tr, id)
	assert.Equal(t, status.StateCompleted, st.State)
	assert.Equal(t, map[string]any{"echo": "total sales by region"}, st.Result)
}

func TestQueue_ConversationOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []string
	inflight := make(map[string]int)

	proc := &funcProcessor{fn: func(_ context.Context, task *Task) (any, error) {
		mu.Lock()
		inflight[task.ConversationID]++
		if inflight[task.ConversationID] > 1 {
			mu.Unlock()
			return nil, errors.New("two tasks of one conversation ran concurrently")
		}
		mu.Unlock()

		// Earlier tasks run longer so a naive pool would finish them out
		// of order.
		var n int
		fmt.Sscanf(task.Input, "%d", &n)
		time.Sleep(time.Duration(5-n) * 10 * time.Millisecond)

		mu.Lock()
		inflight[task.ConversationID]--
		order = append(order, task.ConversationID+"/"+task.Input)
		mu.Unlock()
		return task.Input, nil
	}}
	q, tr := newTestQueue(t, proc, Config{Workers: 4})

	var ids []string
	for i := 1; i <= 4; i++ {
		id, err := q.Submit("conv-1", fmt.Sprintf("%d", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids {
		st := waitTerminal(t, tr, id)
		require.Equal(t, status.StateCompleted, st.State, "error: %s", st.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"conv-1/1", "conv-1/2", "conv-1/3", "conv-1/4"}, order)
}

func TestQueue_ConversationsRunInParallel(t *testing.T) {
	gate := make(chan struct{})
	proc := &funcProcessor{fn: func(ctx context.Context, task *Task) (any, error) {
		select {
		case <-gate:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	q, tr := newTestQueue(t, proc, Config{Workers: 2})

	a, err := q.Submit("conv-a", "first")
	require.NoError(t, err)
	b, err := q.Submit("conv-b", "second")
	require.NoError(t, err)

	// Both should reach processing while the gate is closed.
	require.Eventually(t, func() bool {
		sa, err := tr.Get(a)
		if err != nil {
			return false
		}
		sb, err := tr.Get(b)
		if err != nil {
			return false
		}
		return sa.State == status.StateProcessing && sb.State == status.StateProcessing
	}, 2*time.Second, 5*time.Millisecond)

	close(gate)
	waitTerminal(t, tr, a)
	waitTerminal(t, tr, b)
}

func TestQueue_FullRejectsWithoutRegistering(t *testing.T) {
	gate := make(chan struct{})
	proc := &funcProcessor{fn: func(ctx context.Context, task *Task) (any, error) {
		select {
		case <-gate:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	q, tr := newTestQueue(t, proc, Config{Capacity: 2, Workers: 1})

	_, err := q.Submit("conv-1", "a")
	require.NoError(t, err)
	_, err = q.Submit("conv-2", "b")
	require.NoError(t, err)

	_, err = q.Submit("conv-3", "c")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 2, tr.Len(), "rejected submission must not leave a status record")

	outstanding, capacity := q.Depth()
	assert.Equal(t, 2, outstanding)
	assert.Equal(t, 2, capacity)

	close(gate)
}

func TestQueue_CapacityReleasedAfterCompletion(t *testing.T) {
	proc := &funcProcessor{fn: func(context.Context, *Task) (any, error) { return nil, nil }}
	q, tr := newTestQueue(t, proc, Config{Capacity: 1, Workers: 1})

	id, err := q.Submit("conv-1", "a")
	require.NoError(t, err)
	waitTerminal(t, tr, id)

	require.Eventually(t, func() bool {
		outstanding, _ := q.Depth()
		return outstanding == 0
	}, 2*time.Second, 5*time.Millisecond)

	id, err = q.Submit("conv-1", "b")
	require.NoError(t, err)
	waitTerminal(t, tr, id)
}

func TestQueue_ProcessorErrorIsIsolated(t *testing.T) {
	proc := &funcProcessor{fn: func(_ context.Context, task *Task) (any, error) {
		if task.Input == "bad" {
			return nil, errors.New("query service unavailable")
		}
		return "ok", nil
	}}
	q, tr := newTestQueue(t, proc, Config{Workers: 1})

	bad, err := q.Submit("conv-1", "bad")
	require.NoError(t, err)
	good, err := q.Submit("conv-2", "good")
	require.NoError(t, err)

	st := waitTerminal(t, tr, bad)
	assert.Equal(t, status.StateFailed, st.State)
	assert.Equal(t, "query service unavailable", st.Error)
	require.NotNil(t, st.StartedAt, "failed task still passes through processing")

	st = waitTerminal(t, tr, good)
	assert.Equal(t, status.StateCompleted, st.State)
}

func TestQueue_PanicMarksFailed(t *testing.T) {
	proc := &funcProcessor{fn: func(_ context.Context, task *Task) (any, error) {
		if task.Input == "boom" {
			panic("nil dereference somewhere deep")
		}
		return "ok", nil
	}}
	q, tr := newTestQueue(t, proc, Config{Workers: 1})

	bad, err := q.Submit("conv-1", "boom")
	require.NoError(t, err)

	st := waitTerminal(t, tr, bad)
	assert.Equal(t, status.StateFailed, st.State)
	assert.Contains(t, st.Error, "internal error")

	// The worker survived the panic.
	good, err := q.Submit("conv-2", "fine")
	require.NoError(t, err)
	st = waitTerminal(t, tr, good)
	assert.Equal(t, status.StateCompleted, st.State)
}

func TestQueue_ShutdownDrains(t *testing.T) {
	var mu sync.Mutex
	processed := 0
	proc := &funcProcessor{fn: func(context.Context, *Task) (any, error) {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		processed++
		mu.Unlock()
		return nil, nil
	}}

	tr := status.NewTracker(time.Hour, nil)
	t.Cleanup(tr.Close)
	q := New(proc, tr, Config{Workers: 2}, nil)
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		_, err := q.Submit(fmt.Sprintf("conv-%d", i), "x")
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, processed)

	_, err := q.Submit("conv-x", "after shutdown")
	assert.ErrorIs(t, err, ErrNotRunning)
}

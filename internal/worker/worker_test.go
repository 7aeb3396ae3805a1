package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/job"
	"github.com/JakeFAU/company-intel-crawler/internal/queue/memory"
)

type fakeExecutor struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (e *fakeExecutor) Execute(_ context.Context, t job.Ticket) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, t.JobID)
	return e.err
}

func (e *fakeExecutor) ids() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seen...)
}

func TestWorkerRunsTicketsInOrder(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue[job.Ticket](4)
	exec := &fakeExecutor{err: errors.New("write results: disk full")}
	w := New(q, exec, zap.NewNop())

	require.NoError(t, q.Enqueue(context.Background(), job.Ticket{JobID: "a"}))
	require.NoError(t, q.Enqueue(context.Background(), job.Ticket{JobID: "b"}))

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(exec.ids()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []string{"a", "b"}, exec.ids())

	q.Close()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after close")
	}
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	w := New(memory.NewQueue[job.Ticket](1), &fakeExecutor{}, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

type flakySource struct {
	mu    sync.Mutex
	calls int
}

func (s *flakySource) Dequeue(ctx context.Context) (job.Ticket, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	switch n {
	case 1:
		return job.Ticket{}, errors.New("transient")
	case 2:
		return job.Ticket{JobID: "after-retry"}, nil
	default:
		<-ctx.Done()
		return job.Ticket{}, ctx.Err()
	}
}

func TestWorkerContinuesAfterDequeueError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec := &fakeExecutor{}
	w := New(&flakySource{}, exec, zap.NewNop())
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		ids := exec.ids()
		return len(ids) == 1 && ids[0] == "after-retry"
	}, time.Second, 5*time.Millisecond)
}

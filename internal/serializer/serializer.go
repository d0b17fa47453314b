package serializer

import (
	"context"
	"sync"
)

// Serializer is a per-key asynchronous mutual-exclusion queue. Run schedules
// a task after all previously scheduled tasks for the same key have settled,
// success or failure, and never runs two tasks for one key concurrently.
// Waiters are FIFO: each one waits on its immediate predecessor only. Keys
// are independent; there is no global lock beyond the tail map itself.
type Serializer struct {
	mu      sync.Mutex
	tails   map[string]chan struct{}
	pending map[string]int
}

func New() *Serializer {
	return &Serializer{
		tails:   make(map[string]chan struct{}),
		pending: make(map[string]int),
	}
}

// Run executes task inside the key's critical section. If ctx is cancelled
// before the task's turn arrives, the task is skipped and ctx.Err returned;
// the chain behind it still advances.
func (s *Serializer) Run(ctx context.Context, key string, task func() error) error {
	s.mu.Lock()
	prev := s.tails[key]
	done := make(chan struct{})
	s.tails[key] = done
	s.pending[key]++
	s.mu.Unlock()

	defer func() {
		close(done)
		s.mu.Lock()
		s.pending[key]--
		if s.pending[key] == 0 {
			delete(s.pending, key)
			delete(s.tails, key)
		}
		s.mu.Unlock()
	}()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			// Still wait for the predecessor so the critical section is
			// never entered by two tasks, then bail out without running.
			<-prev
			return ctx.Err()
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return task()
}

// Pending reports queued-or-running task count for a key. Test hook.
func (s *Serializer) Pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[key]
}

package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool runs jobs on at most maxWorkers goroutines, spacing job starts by
// at least the configured interval. A job returning an error cancels the
// pool's context; Wait reports the first such error.
type WorkerPool struct {
	interval  time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	turnMu    sync.Mutex
	lastStart time.Time

	mu       sync.Mutex
	firstErr error
}

// NewWorkerPool creates a WorkerPool bound to ctx.
func NewWorkerPool(ctx context.Context, maxWorkers int, interval time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		interval:  interval,
		semaphore: make(chan struct{}, maxWorkers),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Context is cancelled when the parent is, or when any job fails.
func (wp *WorkerPool) Context() context.Context {
	return wp.ctx
}

// Submit blocks until a worker slot is free, then runs job on it. Jobs
// submitted after cancellation are dropped.
func (wp *WorkerPool) Submit(job func(ctx context.Context) error) {
	select {
	case wp.semaphore <- struct{}{}:
	case <-wp.ctx.Done():
		return
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		if !wp.waitTurn() {
			return
		}
		if err := job(wp.ctx); err != nil {
			wp.fail(err)
		}
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() error {
	wp.wg.Wait()
	wp.cancel()

	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.firstErr
}

func (wp *WorkerPool) fail(err error) {
	wp.mu.Lock()
	if wp.firstErr == nil {
		wp.firstErr = err
	}
	wp.mu.Unlock()
	wp.cancel()
}

// waitTurn enforces the start interval. It returns false if the pool was
// cancelled while waiting.
func (wp *WorkerPool) waitTurn() bool {
	wp.turnMu.Lock()
	defer wp.turnMu.Unlock()

	if elapsed := time.Since(wp.lastStart); elapsed < wp.interval {
		select {
		case <-time.After(wp.interval - elapsed):
		case <-wp.ctx.Done():
			return false
		}
	}
	wp.lastStart = time.Now()
	return wp.ctx.Err() == nil
}

// KeySet is a thread-safe set used to claim work items exactly once.
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Claim returns true if key was newly added, false if already present.
func (s *KeySet) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Size returns the number of keys claimed so far.
func (s *KeySet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

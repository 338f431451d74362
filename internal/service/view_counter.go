package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"whereismypet/internal/observability"
)

const (
	DefaultViewQueueSize = 1024
	DefaultViewWorkers   = 4

	viewIncrementTimeout = 5 * time.Second
)

// ViewIncrementer is the store operation the counter drives.
type ViewIncrementer interface {
	IncrementViewCount(ctx context.Context, id string) error
}

// ViewCounter records views off the request path. RecordView never blocks;
// a bounded queue is drained by a fixed pool of workers, and a full queue
// drops the view.
type ViewCounter struct {
	store   ViewIncrementer
	queue   chan string
	workers int

	mu      sync.RWMutex
	stopped bool
	done    sync.WaitGroup

	pendingMu sync.Mutex
	pendingN  int
	drained   *sync.Cond
}

func NewViewCounter(store ViewIncrementer, workers, queueSize int) *ViewCounter {
	if workers <= 0 {
		workers = DefaultViewWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultViewQueueSize
	}
	v := &ViewCounter{
		store:   store,
		queue:   make(chan string, queueSize),
		workers: workers,
	}
	v.drained = sync.NewCond(&v.pendingMu)
	return v
}

func (v *ViewCounter) addPending(delta int) {
	v.pendingMu.Lock()
	v.pendingN += delta
	if v.pendingN == 0 {
		v.drained.Broadcast()
	}
	v.pendingMu.Unlock()
}

// Start launches the worker pool.
func (v *ViewCounter) Start() {
	for i := 0; i < v.workers; i++ {
		v.done.Add(1)
		go v.work()
	}
}

func (v *ViewCounter) work() {
	defer v.done.Done()
	for id := range v.queue {
		v.increment(id)
		v.addPending(-1)
	}
}

func (v *ViewCounter) increment(id string) {
	// Detached from the request: the view outlives the response.
	ctx, cancel := context.WithTimeout(context.Background(), viewIncrementTimeout)
	defer cancel()

	if err := v.store.IncrementViewCount(ctx, id); err != nil {
		observability.ViewCounterFailures.Inc()
		observability.GlobalLogger.WarnContext(ctx, "view count increment failed", "post_id", id, "error", err)
	}
}

// RecordView enqueues one view for postID.
func (v *ViewCounter) RecordView(postID string) {
	if postID == "" {
		return
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.stopped {
		observability.ViewCounterDropped.WithLabelValues("stopped").Inc()
		return
	}

	v.addPending(1)
	select {
	case v.queue <- postID:
		observability.ViewCounterEnqueued.Inc()
	default:
		v.addPending(-1)
		observability.ViewCounterDropped.WithLabelValues("queue_full").Inc()
		observability.GlobalLogger.Warn("view dropped, queue full", "post_id", postID, "queue_size", cap(v.queue))
	}
}

// Flush blocks until every accepted view has been written or has failed.
func (v *ViewCounter) Flush() {
	v.pendingMu.Lock()
	for v.pendingN > 0 {
		v.drained.Wait()
	}
	v.pendingMu.Unlock()
}

// Stop refuses new views and waits for the workers to drain the queue, or
// for ctx to expire.
func (v *ViewCounter) Stop(ctx context.Context) error {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return nil
	}
	v.stopped = true
	close(v.queue)
	v.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		v.done.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("view counter drain interrupted"), ctx.Err())
	}
}

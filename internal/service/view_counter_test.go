package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"whereismypet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewCounter_ConcurrentViewsAreAllCounted(t *testing.T) {
	t.Parallel()
	f := newFixture(t, "")
	ctx := context.Background()

	post, err := f.svc.Create(ctx, validInput(), "owner-1")
	require.NoError(t, err)

	vc := NewViewCounter(f.posts, 4, 128)
	vc.Start()
	defer func() { _ = vc.Stop(context.Background()) }()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vc.RecordView(post.ID)
		}()
	}
	wg.Wait()
	vc.Flush()

	got, err := f.svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.ViewCount)
}

type blockingStore struct {
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func (s *blockingStore) IncrementViewCount(ctx context.Context, _ string) error {
	<-s.release
	s.calls.Add(1)
	return s.err
}

func TestViewCounter_FullQueueDropsWithoutBlocking(t *testing.T) {
	t.Parallel()
	store := &blockingStore{release: make(chan struct{})}
	vc := NewViewCounter(store, 1, 2)
	vc.Start()

	done := make(chan struct{})
	go func() {
		// One view is held by the worker, two fill the queue, the rest drop.
		for i := 0; i < 10; i++ {
			vc.RecordView("p1")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordView blocked on a full queue")
	}

	close(store.release)
	vc.Flush()
	require.NoError(t, vc.Stop(context.Background()))

	calls := store.calls.Load()
	assert.GreaterOrEqual(t, calls, int32(2))
	assert.LessOrEqual(t, calls, int32(3))
}

func TestViewCounter_FailuresAreSwallowed(t *testing.T) {
	t.Parallel()
	store := &blockingStore{release: make(chan struct{}), err: models.NewNotFoundError("Post", "gone")}
	close(store.release)

	vc := NewViewCounter(store, 2, 8)
	vc.Start()
	vc.RecordView("gone")
	vc.RecordView("")
	vc.Flush()
	require.NoError(t, vc.Stop(context.Background()))

	assert.Equal(t, int32(1), store.calls.Load())
}

func TestViewCounter_StopDrainsQueueAndRejectsNewViews(t *testing.T) {
	t.Parallel()
	store := &blockingStore{release: make(chan struct{})}
	close(store.release)

	vc := NewViewCounter(store, 1, 16)
	for i := 0; i < 5; i++ {
		vc.RecordView("p1")
	}
	vc.Start()
	require.NoError(t, vc.Stop(context.Background()))
	assert.Equal(t, int32(5), store.calls.Load())

	vc.RecordView("p1")
	require.NoError(t, vc.Stop(context.Background()))
	assert.Equal(t, int32(5), store.calls.Load())
}

func TestViewCounter_StopHonoursDeadline(t *testing.T) {
	t.Parallel()
	store := &blockingStore{release: make(chan struct{})}
	vc := NewViewCounter(store, 1, 4)
	vc.Start()
	vc.RecordView("p1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := vc.Stop(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(store.release)
}

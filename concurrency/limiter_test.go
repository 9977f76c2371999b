package concurrency

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(1)
	require.True(t, s.TryAcquire())
	assert.False(t, s.TryAcquire())
	assert.Equal(t, 1, s.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx), context.DeadlineExceeded)

	s.Release()
	assert.NoError(t, s.Acquire(context.Background()))
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(2, time.Second)

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Execute(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, 0, l.Stats().InUse)
}

func TestLimiterAcquireTimeout(t *testing.T) {
	l := NewLimiter(1, 10*time.Millisecond)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	err := l.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterHonoursCallerContext(t *testing.T) {
	l := NewLimiter(1, 0)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

func TestLimiterDefaultsToGOMAXPROCS(t *testing.T) {
	assert.Equal(t, runtime.GOMAXPROCS(0), NewLimiter(0, 0).Stats().Capacity)
}

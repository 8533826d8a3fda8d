package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := New(2, nil)
	defer pool.Close()

	var running, peak atomic.Int32
	for range 8 {
		require.NoError(t, pool.Submit(func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	pool.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), running.Load())
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := New(1, nil)
	pool.Close()

	err := pool.Submit(func(context.Context) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPool_CloseCancelsTaskContext(t *testing.T) {
	pool := New(1, nil)
	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))
	<-started
	pool.Close()
	assert.True(t, cancelled.Load())
}

func TestPool_RecoversPanics(t *testing.T) {
	pool := New(1, nil)
	defer pool.Close()

	require.NoError(t, pool.Submit(func(context.Context) { panic("boom") }))
	pool.Wait()

	var ran atomic.Bool
	require.NoError(t, pool.Submit(func(context.Context) { ran.Store(true) }))
	pool.Wait()
	assert.True(t, ran.Load())
}

func TestPool_SubmitDoesNotWaitForSlot(t *testing.T) {
	pool := New(1, nil)
	defer pool.Close()

	release := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) { <-release }))

	var ran atomic.Bool
	submitted := make(chan error, 1)
	go func() {
		submitted <- pool.Submit(func(context.Context) { ran.Store(true) })
	}()

	select {
	case err := <-submitted:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Submit blocked while the pool was saturated")
	}
	assert.False(t, ran.Load())

	close(release)
	pool.Wait()
	assert.True(t, ran.Load())
}

func TestPool_CloseDropsQueuedTasks(t *testing.T) {
	pool := New(1, nil)
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}))
	<-started

	var ran atomic.Bool
	require.NoError(t, pool.Submit(func(context.Context) { ran.Store(true) }))
	pool.Close()
	assert.False(t, ran.Load())
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, got)
	assert.Equal(t, "exports", q.Name())
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls int32
	gaveUp := make(chan Job, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("render failed")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(job Job, err error) { gaveUp <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-gaveUp:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("queue never gave up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, q.MaxRetries())
}

func TestQueuePermanentErrorSkipsRetries(t *testing.T) {
	var calls int32
	handled := make(chan struct{}, 4)
	gaveUp := make(chan Job, 1)
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		handled <- struct{}{}
		return Permanent(errors.New("schedule expired"))
	}, QueueConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(job Job, err error) { gaveUp <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}

	select {
	case <-gaveUp:
		t.Fatal("permanent failures must not reach OnGiveUp")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueRecoversPanickingHandler(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("exports", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("renderer blew up")
		}
		close(done)
		return nil
	}, QueueConfig{RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried after panic")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("gone")
	err := fmt.Errorf("render: %w", Permanent(base))

	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.NoError(t, Permanent(nil))
}

func TestBackoffIsLinearAndCapped(t *testing.T) {
	q := NewQueue("exports", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 3 * time.Second})

	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 3*time.Second, q.backoff(5))

	defaults := NewQueue("exports", nil, QueueConfig{MaxRetries: 2, RetryDelay: time.Second})
	assert.Equal(t, 2*time.Second, defaults.backoff(4))
}

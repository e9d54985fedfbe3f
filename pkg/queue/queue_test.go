package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewWithClient(client, "test")
	t.Cleanup(func() { q.Close() })
	return q, mr
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	first := NewJob("entry-1")
	second := NewJob("entry-2")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	got, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "entry-1", got.EntryID)
	assert.Equal(t, 1, got.Attempt)

	got, err = q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
}

func TestDequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)

	got, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelayedJobsPromoteWhenDue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	now := time.Now()

	job := NewJob("entry-1")
	job.Attempt = 2
	require.NoError(t, q.EnqueueAt(ctx, job, now.Add(time.Minute)))

	n, err := q.Promote(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "not due yet")

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Ready: 0, Delayed: 1}, stats)

	n, err = q.Promote(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Ready: 1, Delayed: 0}, stats)

	got, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Attempt)
}

func TestDequeuePromotesOverdueJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	job := NewJob("entry-1")
	require.NoError(t, q.EnqueueAt(ctx, job, time.Now().Add(-time.Second)))

	got, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
}

func TestKeysArePrefixed(t *testing.T) {
	q, mr := newTestQueue(t)
	require.NoError(t, q.Enqueue(context.Background(), NewJob("entry-1")))
	assert.True(t, mr.Exists("test:jobs:ready"))
}

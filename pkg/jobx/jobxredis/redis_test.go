package jobxredis

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxtest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisQueueContract(t *testing.T) {
	jobxtest.Run(t, func(t *testing.T, clock *jobxtest.FakeClock) jobx.Queue {
		mr := miniredis.RunT(t)
		return NewRedisQueue(newTestClient(t, mr),
			WithClock(clock.Now),
			WithPollInterval(10*time.Millisecond),
		)
	})
}

func TestQueuesSharingKeysSeeTheSameJobs(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	// Two clients stand in for two processes.
	api := NewRedisQueue(newTestClient(t, mr))
	worker := NewRedisQueue(newTestClient(t, mr))

	id, err := api.Enqueue(ctx, jobx.Payload{"query": "shared"})
	require.NoError(t, err)

	job, err := worker.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "shared", job.Payload.String("query"))

	require.NoError(t, worker.Complete(ctx, id, "w1", []byte(`{"ok":true}`)))

	got, err := api.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusCompleted, got.Status)
}

func TestKeyPrefixIsolatesQueues(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := newTestClient(t, mr)

	a := NewRedisQueue(rdb, WithKeyPrefix("tenant-a"))
	b := NewRedisQueue(rdb, WithKeyPrefix("tenant-b"))

	_, err := a.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	job, err := b.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	assert.Nil(t, job)

	assert.True(t, mr.Exists("tenant-a:pending"))
	assert.False(t, mr.Exists("tenant-b:pending"))
}

func TestRecordLayout(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	clock := jobxtest.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	q := NewRedisQueue(newTestClient(t, mr), WithClock(clock.Now))

	id, err := q.Enqueue(ctx, jobx.Payload{"file_path": "uploads/x.pdf"})
	require.NoError(t, err)

	key := DefaultKeyPrefix + ":job:" + id
	assert.Equal(t, "pending", mr.HGet(key, "status"))
	assert.JSONEq(t, `{"file_path":"uploads/x.pdf"}`, mr.HGet(key, "payload"))

	_, err = q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)

	score, err := mr.ZScore(DefaultKeyPrefix+":processing", id)
	require.NoError(t, err)
	assert.Equal(t, float64(clock.Now().Add(time.Minute).UnixMilli()), score)
	assert.Equal(t, "w1", mr.HGet(key, "lease_owner"))
}

func TestUnreachableStoreIsBackendUnavailable(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	q := NewRedisQueue(rdb)
	mr.Close()

	_, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	assert.True(t, jobx.IsUnavailable(err), "got %v", err)

	_, err = q.Lease(ctx, "w1", time.Minute, 0)
	assert.True(t, jobx.IsUnavailable(err), "got %v", err)

	_, err = q.Stats(ctx)
	assert.True(t, jobx.IsUnavailable(err), "got %v", err)
}

func TestUpdatedAtNeverPrecedesCreatedAt(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	start := time.Date(2025, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

	// The worker's clock runs a minute behind the API's.
	api := NewRedisQueue(newTestClient(t, mr), WithClock(jobxtest.NewFakeClock(start).Now))
	worker := NewRedisQueue(newTestClient(t, mr), WithClock(jobxtest.NewFakeClock(start.Add(-time.Minute)).Now))

	id, err := api.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	leased, err := worker.Lease(ctx, "w1", time.Hour, 0)
	require.NoError(t, err)
	require.NotNil(t, leased)
	assert.Equal(t, start, leased.UpdatedAt)

	require.NoError(t, worker.Complete(ctx, id, "w1", []byte(`{}`)))

	job, err := api.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, start, job.CreatedAt)
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))
}

func TestTimestampsSortAsStrings(t *testing.T) {
	whole := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fraction := whole.Add(500 * time.Millisecond)
	assert.Less(t, formatTime(whole), formatTime(fraction))
}

func TestUnknownStatusIsRejected(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	q := NewRedisQueue(newTestClient(t, mr))

	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)
	mr.HSet(DefaultKeyPrefix+":job:"+id, "status", "archived")

	_, err = q.Get(ctx, id)
	assert.True(t, errx.IsCode(err, ErrUnmarshal), "got %v", err)
}

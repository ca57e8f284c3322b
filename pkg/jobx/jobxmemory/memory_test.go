package jobxmemory

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueContract(t *testing.T) {
	jobxtest.Run(t, func(t *testing.T, clock *jobxtest.FakeClock) jobx.Queue {
		return NewMemoryQueue(WithClock(clock.Now), WithPollInterval(10*time.Millisecond))
	})
}

func TestReturnedJobsAreCopies(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	payload := jobx.Payload{"query": "original"}
	id, err := q.Enqueue(ctx, payload)
	require.NoError(t, err)
	payload["query"] = "mutated by caller"

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	job.Payload["query"] = "mutated by reader"
	job.Status = jobx.StatusFailed

	again, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Payload.String("query"))
	assert.Equal(t, jobx.StatusPending, again.Status)
}

func TestBlockedLeasePicksUpExpiredLease(t *testing.T) {
	ctx := context.Background()
	clock := jobxtest.NewFakeClock(time.Now())
	q := NewMemoryQueue(WithClock(clock.Now), WithPollInterval(5*time.Millisecond))

	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)
	_, err = q.Lease(ctx, "w1", time.Second, 0)
	require.NoError(t, err)

	got := make(chan *jobx.Job, 1)
	go func() {
		job, _ := q.Lease(ctx, "w2", time.Minute, 2*time.Second)
		got <- job
	}()

	time.Sleep(20 * time.Millisecond)
	clock.Advance(2 * time.Second)

	select {
	case job := <-got:
		require.NotNil(t, job)
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "w2", job.LeaseOwner)
	case <-time.After(time.Second):
		t.Fatal("expired lease was not reclaimed while waiting")
	}
}

func TestSeparateInstancesDoNotShareJobs(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemoryQueue(), NewMemoryQueue()

	id, err := a.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	_, err = b.Get(ctx, id)
	assert.True(t, jobx.IsNotFound(err))

	job, err := b.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	assert.Nil(t, job)
}

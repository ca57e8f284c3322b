// Package jobxtest holds the behaviour every jobx.Queue must share. Backends
// run it from their own tests.
package jobxtest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty queue that reads time from clock. Calling it twice
// within one test must return two handles on the same storage when the
// backend is shared, or independent queues when it is not.
type Factory func(t *testing.T, clock *FakeClock) jobx.Queue

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Run executes the contract suite.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		run  func(t *testing.T, q jobx.Queue, clock *FakeClock)
	}{
		{"EnqueueStoresPendingRecord", testEnqueueStoresPendingRecord},
		{"GetUnknownIsNotFound", testGetUnknownIsNotFound},
		{"CompleteRoundTrip", testCompleteRoundTrip},
		{"FailRecordsError", testFailRecordsError},
		{"LeaseIsFIFO", testLeaseIsFIFO},
		{"LeaseOnEmptyQueueReturnsNil", testLeaseOnEmptyQueueReturnsNil},
		{"ActiveLeaseIsNotHandedOut", testActiveLeaseIsNotHandedOut},
		{"ConcurrentLeasesNeverDuplicate", testConcurrentLeasesNeverDuplicate},
		{"ExpiredLeaseIsReclaimed", testExpiredLeaseIsReclaimed},
		{"ReclaimedJobJumpsTheQueue", testReclaimedJobJumpsTheQueue},
		{"OwnerMayFinishAfterExpiryBeforeReclaim", testOwnerMayFinishAfterExpiryBeforeReclaim},
		{"TerminalStatesAreFinal", testTerminalStatesAreFinal},
		{"FinishUnknownJobIsNotFound", testFinishUnknownJobIsNotFound},
		{"StatsCountsEveryState", testStatsCountsEveryState},
		{"BlockingLeaseTimesOut", testBlockingLeaseTimesOut},
		{"BlockingLeaseWakesOnEnqueue", testBlockingLeaseWakesOnEnqueue},
		{"BlockingLeaseHonoursCancellation", testBlockingLeaseHonoursCancellation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := NewFakeClock(epoch)
			tt.run(t, factory(t, clock), clock)
		})
	}
}

func testEnqueueStoresPendingRecord(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()

	id, err := q.Enqueue(ctx, jobx.Payload{"file_path": "uploads/a.pdf", "query": "summary"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, jobx.StatusPending, job.Status)
	assert.Equal(t, "uploads/a.pdf", job.Payload.String("file_path"))
	assert.Empty(t, job.Result)
	assert.Empty(t, job.Error)
	assert.Empty(t, job.LeaseOwner)
	assert.Nil(t, job.LeaseExpiry)
	assert.False(t, job.UpdatedAt.Before(job.CreatedAt))

	other, err := q.Enqueue(ctx, jobx.Payload{"query": "x"})
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func testGetUnknownIsNotFound(t *testing.T, q jobx.Queue, _ *FakeClock) {
	_, err := q.Get(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.Error(t, err)
	assert.True(t, jobx.IsNotFound(err))
}

func testCompleteRoundTrip(t *testing.T, q jobx.Queue, clock *FakeClock) {
	ctx := context.Background()
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	job, err := q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, jobx.StatusProcessing, job.Status)
	assert.Equal(t, "w1", job.LeaseOwner)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.LeaseExpiry)
	assert.True(t, job.LeaseExpiry.After(clock.Now()))

	clock.Advance(time.Second)
	result := json.RawMessage(`{"status":"success","analysis":"ok"}`)
	require.NoError(t, q.Complete(ctx, id, "w1", result))

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusCompleted, got.Status)
	assert.JSONEq(t, string(result), string(got.Result))
	assert.Empty(t, got.Error)
	assert.Empty(t, got.LeaseOwner)
	assert.Nil(t, got.LeaseExpiry)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func testFailRecordsError(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	_, err = q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, q.Fail(ctx, id, "w1", "analysis service returned 500"))

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusFailed, got.Status)
	assert.Equal(t, "analysis service returned 500", got.Error)
	assert.Empty(t, got.Result)
	assert.Empty(t, got.LeaseOwner)
}

func testLeaseIsFIFO(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		id, err := q.Enqueue(ctx, jobx.Payload{"name": name})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, want := range ids {
		job, err := q.Lease(ctx, "w1", time.Minute, 0)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, want, job.ID)
	}
}

func testLeaseOnEmptyQueueReturnsNil(t *testing.T, q jobx.Queue, _ *FakeClock) {
	job, err := q.Lease(context.Background(), "w1", time.Minute, 0)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func testActiveLeaseIsNotHandedOut(t *testing.T, q jobx.Queue, clock *FakeClock) {
	ctx := context.Background()
	_, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	first, err := q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	clock.Advance(59 * time.Second)
	second, err := q.Lease(ctx, "w2", time.Minute, 0)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func testConcurrentLeasesNeverDuplicate(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	const jobs, workers = 10, 16
	for i := range jobs {
		_, err := q.Enqueue(ctx, jobx.Payload{"n": i})
		require.NoError(t, err)
	}

	var (
		mu     sync.Mutex
		leased = make(map[string]string)
		wg     sync.WaitGroup
	)
	for w := range workers {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			for {
				job, err := q.Lease(ctx, worker, time.Minute, 0)
				if err != nil || job == nil {
					return
				}
				mu.Lock()
				if prev, dup := leased[job.ID]; dup {
					t.Errorf("job %s leased by %s and %s", job.ID, prev, worker)
				}
				leased[job.ID] = worker
				mu.Unlock()
			}
		}(string(rune('a' + w)))
	}
	wg.Wait()

	assert.Len(t, leased, jobs)
	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, int64(jobs), stats.Processing)
}

func testExpiredLeaseIsReclaimed(t *testing.T, q jobx.Queue, clock *FakeClock) {
	ctx := context.Background()
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "D"})
	require.NoError(t, err)

	first, err := q.Lease(ctx, "w1", time.Second, 0)
	require.NoError(t, err)
	require.NotNil(t, first)

	clock.Advance(2 * time.Second)

	second, err := q.Lease(ctx, "w2", time.Minute, 0)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, id, second.ID)
	assert.Equal(t, "w2", second.LeaseOwner)
	assert.Equal(t, 2, second.Attempts)

	err = q.Complete(ctx, id, "w1", json.RawMessage(`{"by":"w1"}`))
	require.Error(t, err)
	assert.True(t, jobx.IsStaleLease(err))

	require.NoError(t, q.Complete(ctx, id, "w2", json.RawMessage(`{"by":"w2"}`)))

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusCompleted, got.Status)
	assert.JSONEq(t, `{"by":"w2"}`, string(got.Result))
}

func testReclaimedJobJumpsTheQueue(t *testing.T, q jobx.Queue, clock *FakeClock) {
	ctx := context.Background()
	x, err := q.Enqueue(ctx, jobx.Payload{"name": "X"})
	require.NoError(t, err)
	y, err := q.Enqueue(ctx, jobx.Payload{"name": "Y"})
	require.NoError(t, err)

	job, err := q.Lease(ctx, "w1", time.Second, 0)
	require.NoError(t, err)
	require.Equal(t, x, job.ID)

	clock.Advance(2 * time.Second)

	job, err = q.Lease(ctx, "w2", time.Minute, 0)
	require.NoError(t, err)
	assert.Equal(t, x, job.ID)

	job, err = q.Lease(ctx, "w3", time.Minute, 0)
	require.NoError(t, err)
	assert.Equal(t, y, job.ID)
}

func testOwnerMayFinishAfterExpiryBeforeReclaim(t *testing.T, q jobx.Queue, clock *FakeClock) {
	ctx := context.Background()
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	_, err = q.Lease(ctx, "w1", time.Second, 0)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	require.NoError(t, q.Complete(ctx, id, "w1", json.RawMessage(`{}`)))

	// Nothing left to reclaim.
	job, err := q.Lease(ctx, "w2", time.Minute, 0)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func testTerminalStatesAreFinal(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)

	_, err = q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, id, "w1", json.RawMessage(`{"n":1}`)))

	err = q.Complete(ctx, id, "w1", json.RawMessage(`{"n":2}`))
	assert.True(t, jobx.IsStaleLease(err))
	err = q.Fail(ctx, id, "w1", "late failure")
	assert.True(t, jobx.IsStaleLease(err))

	got, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusCompleted, got.Status)
	assert.JSONEq(t, `{"n":1}`, string(got.Result))
	assert.Empty(t, got.Error)

	// A pending job cannot be finished by anyone either.
	pending, err := q.Enqueue(ctx, jobx.Payload{"query": "q"})
	require.NoError(t, err)
	assert.True(t, jobx.IsStaleLease(q.Fail(ctx, pending, "w1", "nope")))
}

func testFinishUnknownJobIsNotFound(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	id := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	assert.True(t, jobx.IsNotFound(q.Complete(ctx, id, "w1", nil)))
	assert.True(t, jobx.IsNotFound(q.Fail(ctx, id, "w1", "x")))
}

func testStatsCountsEveryState(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	ids := make([]string, 4)
	for i := range ids {
		id, err := q.Enqueue(ctx, jobx.Payload{"n": i})
		require.NoError(t, err)
		ids[i] = id
	}

	for range 3 {
		_, err := q.Lease(ctx, "w1", time.Minute, 0)
		require.NoError(t, err)
	}
	require.NoError(t, q.Complete(ctx, ids[0], "w1", json.RawMessage(`{}`)))
	require.NoError(t, q.Fail(ctx, ids[1], "w1", "boom"))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, q.Backend(), stats.Backend)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Processing)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
}

func testBlockingLeaseTimesOut(t *testing.T, q jobx.Queue, _ *FakeClock) {
	start := time.Now()
	job, err := q.Lease(context.Background(), "w1", time.Minute, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func testBlockingLeaseWakesOnEnqueue(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx := context.Background()
	got := make(chan *jobx.Job, 1)
	go func() {
		job, _ := q.Lease(ctx, "w1", time.Minute, 5*time.Second)
		got <- job
	}()

	time.Sleep(20 * time.Millisecond)
	id, err := q.Enqueue(ctx, jobx.Payload{"query": "late"})
	require.NoError(t, err)

	select {
	case job := <-got:
		require.NotNil(t, job)
		assert.Equal(t, id, job.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("blocked lease did not pick up the new job")
	}
}

func testBlockingLeaseHonoursCancellation(t *testing.T, q jobx.Queue, _ *FakeClock) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Lease(ctx, "w1", time.Minute, 10*time.Second)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("lease ignored cancellation")
	}
}

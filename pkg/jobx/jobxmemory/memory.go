package jobxmemory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/google/uuid"
)

// MemoryQueue implements jobx.Queue inside the process. State is lost on
// exit and invisible to other processes; it exists so the service keeps
// working when the durable store is unreachable.
type MemoryQueue struct {
	mu         sync.Mutex
	jobs       map[string]*jobx.Job
	pending    []string
	processing map[string]struct{}
	completed  int64
	failed     int64

	// wake is closed and replaced whenever a job becomes available
	wake chan struct{}

	now          jobx.NowFunc
	pollInterval time.Duration
}

// Option configures a MemoryQueue.
type Option func(*MemoryQueue)

// WithClock replaces the clock used for lease expiry.
func WithClock(now jobx.NowFunc) Option {
	return func(q *MemoryQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithPollInterval sets how often a blocked Lease rechecks for expired leases.
func WithPollInterval(d time.Duration) Option {
	return func(q *MemoryQueue) {
		if d > 0 {
			q.pollInterval = d
		}
	}
}

func NewMemoryQueue(opts ...Option) *MemoryQueue {
	q := &MemoryQueue{
		jobs:         make(map[string]*jobx.Job),
		processing:   make(map[string]struct{}),
		wake:         make(chan struct{}),
		now:          jobx.UTCNow,
		pollInterval: 100 * time.Millisecond,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *MemoryQueue) Backend() jobx.Backend { return jobx.BackendMemory }

func (q *MemoryQueue) Enqueue(ctx context.Context, payload jobx.Payload) (string, error) {
	now := q.now()
	job := &jobx.Job{
		ID:        uuid.NewString(),
		Status:    jobx.StatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored := job.Clone()

	q.mu.Lock()
	q.jobs[job.ID] = stored
	q.pending = append(q.pending, job.ID)
	q.signal()
	q.mu.Unlock()

	return job.ID, nil
}

func (q *MemoryQueue) Lease(ctx context.Context, workerID string, leaseFor, wait time.Duration) (*jobx.Job, error) {
	leaseFor = jobx.ResolveLease(leaseFor)

	var deadline time.Time
	if wait > 0 {
		deadline = time.Now().Add(wait)
	}

	for {
		q.mu.Lock()
		job := q.leaseLocked(workerID, leaseFor)
		wake := q.wake
		q.mu.Unlock()

		if job != nil {
			return job, nil
		}
		if wait <= 0 {
			return nil, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		timer := time.NewTimer(min(remaining, q.pollInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// leaseLocked reclaims the oldest expired lease, or pops the oldest pending
// job. Callers hold q.mu.
func (q *MemoryQueue) leaseLocked(workerID string, leaseFor time.Duration) *jobx.Job {
	now := q.now()

	var job *jobx.Job
	if expired := q.oldestExpiredLocked(now); expired != nil {
		logx.WithFields(logx.Fields{
			"job_id":         expired.ID,
			"previous_owner": expired.LeaseOwner,
			"worker_id":      workerID,
		}).Warn("jobxmemory: reclaiming expired lease")
		job = expired
	} else {
		for len(q.pending) > 0 {
			id := q.pending[0]
			q.pending[0] = ""
			q.pending = q.pending[1:]
			if j, ok := q.jobs[id]; ok && j.Status == jobx.StatusPending {
				job = j
				break
			}
		}
	}
	if job == nil {
		return nil
	}

	expiry := now.Add(leaseFor)
	job.Status = jobx.StatusProcessing
	job.LeaseOwner = workerID
	job.LeaseExpiry = &expiry
	job.Attempts++
	job.UpdatedAt = now
	q.processing[job.ID] = struct{}{}

	return job.Clone()
}

func (q *MemoryQueue) oldestExpiredLocked(now time.Time) *jobx.Job {
	var oldest *jobx.Job
	for id := range q.processing {
		j := q.jobs[id]
		if j.LeaseExpiry == nil || now.Before(*j.LeaseExpiry) {
			continue
		}
		if oldest == nil || j.LeaseExpiry.Before(*oldest.LeaseExpiry) ||
			(j.LeaseExpiry.Equal(*oldest.LeaseExpiry) && j.CreatedAt.Before(oldest.CreatedAt)) {
			oldest = j
		}
	}
	return oldest
}

func (q *MemoryQueue) Complete(ctx context.Context, jobID, workerID string, result json.RawMessage) error {
	return q.finish(jobID, workerID, func(j *jobx.Job) {
		j.Status = jobx.StatusCompleted
		if len(result) > 0 {
			j.Result = append(json.RawMessage(nil), result...)
		}
		q.completed++
	})
}

func (q *MemoryQueue) Fail(ctx context.Context, jobID, workerID, errMsg string) error {
	if errMsg == "" {
		errMsg = "job failed"
	}
	return q.finish(jobID, workerID, func(j *jobx.Job) {
		j.Status = jobx.StatusFailed
		j.Error = errMsg
		q.failed++
	})
}

func (q *MemoryQueue) finish(jobID, workerID string, apply func(*jobx.Job)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return jobx.NotFound(jobID)
	}
	if job.Status != jobx.StatusProcessing || job.LeaseOwner != workerID {
		return jobx.StaleLease(jobID, workerID).WithDetail("status", job.Status)
	}

	apply(job)
	job.LeaseOwner = ""
	job.LeaseExpiry = nil
	job.UpdatedAt = maxTime(q.now(), job.UpdatedAt)
	delete(q.processing, jobID)
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, jobID string) (*jobx.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return nil, jobx.NotFound(jobID)
	}
	return job.Clone(), nil
}

func (q *MemoryQueue) Stats(ctx context.Context) (*jobx.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return &jobx.Stats{
		Backend:    jobx.BackendMemory,
		Pending:    int64(len(q.pending)),
		Processing: int64(len(q.processing)),
		Completed:  q.completed,
		Failed:     q.failed,
	}, nil
}

// signal wakes every blocked Lease. Callers hold q.mu.
func (q *MemoryQueue) signal() {
	close(q.wake)
	q.wake = make(chan struct{})
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

var _ jobx.Queue = (*MemoryQueue)(nil)

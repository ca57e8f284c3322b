package jobx

import (
	"context"
	"encoding/json"
	"time"
)

// HandlerFunc runs one leased job. The returned document becomes the job
// result; a non-nil error marks the job failed.
type HandlerFunc func(ctx context.Context, job *Job) (json.RawMessage, error)

// JobEnqueuer stores new pending jobs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, payload Payload) (string, error)
}

// JobStatusReader reads job records and queue counters.
type JobStatusReader interface {
	// Get returns ErrJobNotFound for unknown ids.
	Get(ctx context.Context, jobID string) (*Job, error)
	Stats(ctx context.Context) (*Stats, error)
}

// JobProcessor is the worker side of a queue.
type JobProcessor interface {
	// Lease hands one job to workerID for leaseFor. An expired lease is
	// reclaimed before any pending job is popped. With wait > 0 it blocks up
	// to wait for work; (nil, nil) means nothing was available.
	Lease(ctx context.Context, workerID string, leaseFor, wait time.Duration) (*Job, error)

	// Complete and Fail move a processing job owned by workerID to a
	// terminal state. Anything else yields ErrStaleLease and leaves the
	// record untouched.
	Complete(ctx context.Context, jobID, workerID string, result json.RawMessage) error
	Fail(ctx context.Context, jobID, workerID, errMsg string) error
}

// Queue is implemented by every backend.
type Queue interface {
	JobEnqueuer
	JobStatusReader
	JobProcessor
	Backend() Backend
}

// NowFunc is the clock backends read lease expiry against.
type NowFunc func() time.Time

// UTCNow is the default clock.
func UTCNow() time.Time { return time.Now().UTC() }

package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue implements jobx.Queue on a shared Redis instance. Every state
// change runs as one MULTI/EXEC or Lua script, so any number of processes
// can lease from the same keys.
type RedisQueue struct {
	rdb          *redis.Client
	keys         keys
	now          jobx.NowFunc
	pollInterval time.Duration
}

// Option configures a RedisQueue.
type Option func(*RedisQueue)

func WithKeyPrefix(prefix string) Option {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.keys = keys{prefix: prefix}
		}
	}
}

// WithClock replaces the clock used for lease expiry. All processes sharing
// the keys must agree on it within the tolerance of the lease duration.
func WithClock(now jobx.NowFunc) Option {
	return func(q *RedisQueue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithPollInterval sets how often a blocked Lease retries.
func WithPollInterval(d time.Duration) Option {
	return func(q *RedisQueue) {
		if d > 0 {
			q.pollInterval = d
		}
	}
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(rdb *redis.Client, opts ...Option) *RedisQueue {
	q := &RedisQueue{
		rdb:          rdb,
		keys:         keys{prefix: DefaultKeyPrefix},
		now:          jobx.UTCNow,
		pollInterval: 250 * time.Millisecond,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

func (q *RedisQueue) Backend() jobx.Backend { return jobx.BackendRedis }

// Enqueue stores the record and pushes its id in one transaction.
func (q *RedisQueue) Enqueue(ctx context.Context, payload jobx.Payload) (string, error) {
	now := q.now()
	job := &jobx.Job{
		ID:        uuid.NewString(),
		Status:    jobx.StatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	fields, err := encodeNewJob(job)
	if err != nil {
		return "", err
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.keys.job(job.ID), fields)
	pipe.LPush(ctx, q.keys.pending(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", wrapErr("enqueue", err)
	}

	return job.ID, nil
}

// Lease polls the lease script until it yields a job or wait runs out.
func (q *RedisQueue) Lease(ctx context.Context, workerID string, leaseFor, wait time.Duration) (*jobx.Job, error) {
	leaseFor = jobx.ResolveLease(leaseFor)
	deadline := time.Now().Add(wait)

	for {
		job, err := q.tryLease(ctx, workerID, leaseFor)
		if err != nil || job != nil {
			if err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return job, err
		}

		remaining := time.Until(deadline)
		if wait <= 0 || remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(min(remaining, q.pollInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (q *RedisQueue) tryLease(ctx context.Context, workerID string, leaseFor time.Duration) (*jobx.Job, error) {
	now := q.now()
	expiry := now.Add(leaseFor)

	reply, err := leaseScript.Run(ctx, q.rdb,
		[]string{q.keys.pending(), q.keys.processing()},
		q.keys.jobPrefix(),
		workerID,
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expiry.UnixMilli(), 10),
		formatTime(now),
	).Slice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, wrapErr("lease", err)
	}
	if len(reply) != 3 {
		return nil, redisErrors.New(ErrScript).WithDetail("op", "lease").WithDetail("reply_len", len(reply))
	}

	raw, _ := reply[2].([]any)
	job, err := decodeJob(pairsToMap(raw))
	if err != nil {
		return nil, err
	}

	if reclaimed, _ := reply[0].(int64); reclaimed == 1 {
		previous, _ := reply[1].(string)
		logx.WithFields(logx.Fields{
			"job_id":         job.ID,
			"previous_owner": previous,
			"worker_id":      workerID,
			"attempt":        job.Attempts,
		}).Warn("jobxredis: reclaimed expired lease")
	}

	return job, nil
}

func (q *RedisQueue) Complete(ctx context.Context, jobID, workerID string, result json.RawMessage) error {
	return q.finish(ctx, "complete", jobID, workerID, jobx.StatusCompleted, fieldResult, string(result))
}

func (q *RedisQueue) Fail(ctx context.Context, jobID, workerID, errMsg string) error {
	if errMsg == "" {
		errMsg = "job failed"
	}
	return q.finish(ctx, "fail", jobID, workerID, jobx.StatusFailed, fieldError, errMsg)
}

func (q *RedisQueue) finish(ctx context.Context, op, jobID, workerID string, status jobx.Status, field, value string) error {
	code, err := finishScript.Run(ctx, q.rdb,
		[]string{q.keys.job(jobID), q.keys.processing(), q.keys.stats()},
		jobID,
		workerID,
		string(status),
		field,
		value,
		formatTime(q.now()),
	).Int64()
	if err != nil {
		return wrapErr(op, err)
	}

	switch code {
	case 1:
		return nil
	case -1:
		return jobx.NotFound(jobID)
	default:
		return jobx.StaleLease(jobID, workerID)
	}
}

func (q *RedisQueue) Get(ctx context.Context, jobID string) (*jobx.Job, error) {
	fields, err := q.rdb.HGetAll(ctx, q.keys.job(jobID)).Result()
	if err != nil {
		return nil, wrapErr("get", err)
	}
	if len(fields) == 0 {
		return nil, jobx.NotFound(jobID)
	}
	return decodeJob(fields)
}

func (q *RedisQueue) Stats(ctx context.Context) (*jobx.Stats, error) {
	pipe := q.rdb.Pipeline()
	pending := pipe.LLen(ctx, q.keys.pending())
	processing := pipe.ZCard(ctx, q.keys.processing())
	counters := pipe.HMGet(ctx, q.keys.stats(), string(jobx.StatusCompleted), string(jobx.StatusFailed))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapErr("stats", err)
	}

	values := counters.Val()
	return &jobx.Stats{
		Backend:    jobx.BackendRedis,
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Completed:  parseCounter(values, 0),
		Failed:     parseCounter(values, 1),
	}, nil
}

func parseCounter(values []any, i int) int64 {
	if i >= len(values) {
		return 0
	}
	s, _ := values[i].(string)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

var _ jobx.Queue = (*RedisQueue)(nil)

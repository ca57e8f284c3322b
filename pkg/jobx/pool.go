package jobx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"golang.org/x/sync/errgroup"
)

// maxFailureMessage caps the error text stored on failed jobs.
const maxFailureMessage = 1024

// Pool runs a fixed number of workers that lease jobs from a queue and hand
// them to a single handler.
type Pool struct {
	queue   Queue
	handler HandlerFunc
	opts    WorkerOptions
	lease   *LeasePolicy

	mu      sync.Mutex
	running bool
}

func NewPool(queue Queue, handler HandlerFunc, options ...WorkerOption) *Pool {
	opts := defaultWorkerOptions()
	for _, o := range options {
		o(&opts)
	}
	if opts.WorkerIDPrefix == "" {
		opts.WorkerIDPrefix = defaultWorkerIDPrefix()
	}
	return &Pool{
		queue:   queue,
		handler: handler,
		opts:    opts,
		lease:   NewLeasePolicy(opts.LeaseDuration),
	}
}

func defaultWorkerIDPrefix() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// WorkerID returns the lease owner id of worker n.
func (p *Pool) WorkerID(n int) string {
	return fmt.Sprintf("%s-%d", p.opts.WorkerIDPrefix, n)
}

// Start runs the workers and blocks until ctx is cancelled. In-flight jobs
// are given ShutdownTimeout to finish before Start returns.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	leaseFor := p.lease.Resolve(p.opts.LeaseDuration)
	logx.WithFields(logx.Fields{
		"backend":     p.queue.Backend(),
		"concurrency": p.opts.Concurrency,
		"lease":       leaseFor.Duration.String(),
	}).Info("jobx: starting worker pool")

	g, gctx := errgroup.WithContext(ctx)
	for i := range p.opts.Concurrency {
		workerID := p.WorkerID(i)
		g.Go(func() error {
			p.workerLoop(gctx, workerID, leaseFor.Duration)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	logx.Info("jobx: shutting down workers...")
	select {
	case err := <-done:
		logx.Info("jobx: all workers stopped")
		return err
	case <-time.After(p.opts.ShutdownTimeout):
		logx.Warn("jobx: shutdown timed out, in-flight jobs will be reclaimed after lease expiry")
		return nil
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerID string, leaseFor time.Duration) {
	log := logx.WithField("worker_id", workerID)
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.queue.Lease(ctx, workerID, leaseFor, p.opts.DequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warnf("jobx: lease failed, backing off %s", p.opts.BackoffInterval)
			p.sleep(ctx, p.opts.BackoffInterval)
			continue
		}
		if job == nil {
			if p.opts.DequeueTimeout <= 0 {
				p.sleep(ctx, p.opts.IdleInterval)
			}
			continue
		}

		p.process(ctx, workerID, leaseFor, job)
	}
}

// process runs the handler and records the outcome. Shutdown does not cancel
// a running handler; it is bounded by the lease instead.
func (p *Pool) process(ctx context.Context, workerID string, leaseFor time.Duration, job *Job) {
	log := logx.WithFields(logx.Fields{
		"worker_id": workerID,
		"job_id":    job.ID,
		"attempt":   job.Attempts,
	})
	log.Info("jobx: processing job")

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseFor)
	started := time.Now()
	result, herr := p.runHandler(hctx, job)
	cancel()

	fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FinishTimeout)
	defer fcancel()

	var err error
	if herr != nil {
		log.WithError(herr).Warnf("jobx: job failed after %s", time.Since(started).Round(time.Millisecond))
		err = p.queue.Fail(fctx, job.ID, workerID, FailureMessage(herr))
	} else {
		err = p.queue.Complete(fctx, job.ID, workerID, result)
		if err == nil {
			log.Infof("jobx: job completed in %s", time.Since(started).Round(time.Millisecond))
		}
	}

	switch {
	case err == nil:
	case IsStaleLease(err):
		log.WithError(err).Warn("jobx: lease lost before finishing, outcome discarded")
	default:
		log.WithError(err).Error("jobx: failed to record job outcome")
		p.sleep(ctx, p.opts.BackoffInterval)
	}
}

func (p *Pool) runHandler(ctx context.Context, job *Job) (result json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.WithFields(logx.Fields{
				"job_id": job.ID,
				"stack":  string(debug.Stack()),
			}).Errorf("jobx: handler panicked: %v", r)
			err = jobxErrors.NewWithMessage(ErrHandlerFailure, fmt.Sprintf("handler panicked: %v", r)).
				WithDetail("job_id", job.ID)
		}
	}()

	result, err = p.handler(ctx, job)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 && !json.Valid(result) {
		return nil, jobxErrors.NewWithMessage(ErrHandlerFailure, "handler returned invalid JSON").
			WithDetail("job_id", job.ID)
	}
	return result, nil
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// FailureMessage turns a handler error into the text stored on the job.
// Coded errors contribute only their message so causes with internal detail
// stay in the logs.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if e, ok := errx.As(err); ok {
		msg = e.Message
	}
	if msg == "" {
		msg = "job failed"
	}
	if len(msg) > maxFailureMessage {
		cut := maxFailureMessage
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}

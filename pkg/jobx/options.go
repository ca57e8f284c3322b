package jobx

import "time"

// WorkerOptions configures a Pool.
type WorkerOptions struct {
	Concurrency int

	// LeaseDuration bounds how long a job may run before another worker
	// can reclaim it. Handlers see it as their context deadline.
	LeaseDuration time.Duration

	// DequeueTimeout is the wait passed to Lease while idle.
	DequeueTimeout time.Duration

	// IdleInterval is the pause after an empty non-blocking Lease, i.e. when
	// DequeueTimeout is zero.
	IdleInterval time.Duration

	// BackoffInterval is the pause after a backend error.
	BackoffInterval time.Duration

	ShutdownTimeout time.Duration

	// WorkerIDPrefix is prepended to the worker index to form lease owner
	// ids. Defaults to "{hostname}-{pid}".
	WorkerIDPrefix string

	// FinishTimeout bounds the Complete or Fail call after a handler returns.
	FinishTimeout time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		Concurrency:     2,
		LeaseDuration:   DefaultLeaseDuration,
		DequeueTimeout:  time.Second,
		IdleInterval:    time.Second,
		BackoffInterval: 5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		FinishTimeout:   10 * time.Second,
	}
}

// WorkerOption is a functional option for configuring the pool.
type WorkerOption func(*WorkerOptions)

func WithConcurrency(n int) WorkerOption {
	return func(o *WorkerOptions) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

func WithLeaseDuration(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.LeaseDuration = d
	}
}

func WithDequeueTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d >= 0 {
			o.DequeueTimeout = d
		}
	}
}

func WithIdleInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.IdleInterval = d
		}
	}
}

func WithBackoffInterval(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.BackoffInterval = d
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for workers to finish on shutdown.
func WithShutdownTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		o.ShutdownTimeout = d
	}
}

func WithWorkerIDPrefix(prefix string) WorkerOption {
	return func(o *WorkerOptions) {
		o.WorkerIDPrefix = prefix
	}
}

func WithFinishTimeout(d time.Duration) WorkerOption {
	return func(o *WorkerOptions) {
		if d > 0 {
			o.FinishTimeout = d
		}
	}
}

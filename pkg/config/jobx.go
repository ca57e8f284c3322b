package config

import "time"

// RedisConfig locates the durable queue store. An unreachable URL makes the
// processes fall back to the in-memory queue.
type RedisConfig struct {
	URL          string        `env:"URL"           envDefault:"redis://localhost:6379/0"`
	KeyPrefix    string        `env:"KEY_PREFIX"    envDefault:"docqueue"`
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"2s"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"  envDefault:"2s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// JobxConfig configures the worker pool.
type JobxConfig struct {
	Concurrency     int           `env:"CONCURRENCY"      envDefault:"2"`
	LeaseDuration   time.Duration `env:"LEASE_DURATION"   envDefault:"5m"`
	DequeueTimeout  time.Duration `env:"DEQUEUE_TIMEOUT"  envDefault:"1s"`
	IdleInterval    time.Duration `env:"IDLE_INTERVAL"    envDefault:"1s"`
	PollInterval    time.Duration `env:"POLL_INTERVAL"    envDefault:"250ms"`
	BackoffInterval time.Duration `env:"BACKOFF_INTERVAL" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// InlineWorkers runs a pool inside the HTTP server process.
	InlineWorkers bool `env:"INLINE_WORKERS" envDefault:"true"`
}

func (j *JobxConfig) Sanitize() {
	if j.Concurrency < 1 {
		j.Concurrency = 2
	}
	if j.DequeueTimeout < 0 {
		j.DequeueTimeout = time.Second
	}
	if j.IdleInterval <= 0 {
		j.IdleInterval = time.Second
	}
	if j.PollInterval <= 0 {
		j.PollInterval = 250 * time.Millisecond
	}
	if j.BackoffInterval <= 0 {
		j.BackoffInterval = 5 * time.Second
	}
	if j.ShutdownTimeout <= 0 {
		j.ShutdownTimeout = 30 * time.Second
	}
	// LeaseDuration is left as is; jobx.ResolveLease owns its policy.
}

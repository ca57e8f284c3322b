// Package jobxauto picks the queue backend once at startup: Redis when it
// answers a PING, the in-process queue otherwise.
package jobxauto

import (
	"context"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/redis/go-redis/v9"
)

// Config describes how to reach the durable store.
type Config struct {
	URL          string
	KeyPrefix    string
	ProbeTimeout time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = c.ProbeTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	return c
}

// Backend is the selected queue plus the Redis client behind it, if any.
type Backend struct {
	Queue jobx.Queue

	// Redis is nil when the in-memory queue was selected.
	Redis *redis.Client
}

func (b *Backend) Durable() bool { return b.Redis != nil }

func (b *Backend) Close() error {
	if b.Redis == nil {
		return nil
	}
	return b.Redis.Close()
}

// Open probes the store once. The choice holds for the life of the process;
// a store that comes back later is not picked up.
func Open(ctx context.Context, cfg Config) *Backend {
	cfg = cfg.withDefaults()

	rdb, err := connect(ctx, cfg)
	if err != nil {
		logx.WithError(err).WithField("redis_url", redactURL(cfg.URL)).
			Warn("jobxauto: durable queue unreachable, falling back to in-memory queue; jobs will not survive a restart or be shared between processes")
		return &Backend{Queue: jobxmemory.NewMemoryQueue()}
	}

	logx.WithField("redis_url", redactURL(cfg.URL)).Info("jobxauto: using redis queue")
	return &Backend{
		Queue: jobxredis.NewRedisQueue(rdb,
			jobxredis.WithKeyPrefix(cfg.KeyPrefix),
			jobxredis.WithPollInterval(cfg.PollInterval),
		),
		Redis: rdb,
	}
}

func connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	rdb := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// redactURL drops credentials before the URL reaches the logs.
func redactURL(raw string) string {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return "<invalid>"
	}
	return opts.Addr
}

package jobx

import (
	"encoding/json"
	"maps"
	"time"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Payload is the opaque key/value input of a job. Values must be JSON
// encodable; after a trip through a durable backend numbers come back as
// float64.
type Payload map[string]any

// String returns the string stored under key, or "".
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int64 returns the number stored under key, accepting any JSON numeric shape.
func (p Payload) Int64(key string) (int64, bool) {
	switch v := p[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// Job is the stored record of one unit of work.
type Job struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	Payload     Payload         `json:"payload"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Attempts    int             `json:"attempts"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	LeaseOwner  string          `json:"lease_owner,omitempty"`
	LeaseExpiry *time.Time      `json:"lease_expiry,omitempty"`
}

// Clone returns a copy that shares no mutable state with j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Payload = maps.Clone(j.Payload)
	if j.Result != nil {
		c.Result = append(json.RawMessage(nil), j.Result...)
	}
	if j.LeaseExpiry != nil {
		exp := *j.LeaseExpiry
		c.LeaseExpiry = &exp
	}
	return &c
}

// Backend names the queue implementation in use.
type Backend string

const (
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// Stats is a point-in-time snapshot of the queue.
type Stats struct {
	Backend    Backend `json:"backend"`
	Pending    int64   `json:"pending"`
	Processing int64   `json:"processing"`
	Completed  int64   `json:"completed"`
	Failed     int64   `json:"failed"`
}

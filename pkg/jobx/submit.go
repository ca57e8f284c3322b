package jobx

import (
	"context"
	"maps"
)

// Submitter is the front-end entry point for new work.
type Submitter struct {
	queue JobEnqueuer
}

func NewSubmitter(queue JobEnqueuer) *Submitter {
	return &Submitter{queue: queue}
}

// Submit enqueues payload and returns the new job id. The payload is copied,
// so later changes by the caller do not reach the stored record.
func (s *Submitter) Submit(ctx context.Context, payload Payload) (string, error) {
	if len(payload) == 0 {
		return "", InvalidPayload("payload must not be empty")
	}
	return s.queue.Enqueue(ctx, maps.Clone(payload))
}

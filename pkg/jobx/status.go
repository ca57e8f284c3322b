package jobx

import (
	"context"

	"github.com/google/uuid"
)

// StatusService is the read-only view of the queue used by status endpoints.
type StatusService struct {
	reader JobStatusReader
}

func NewStatusService(reader JobStatusReader) *StatusService {
	return &StatusService{reader: reader}
}

// Status returns the job record. Ids that are not UUIDs are reported as
// not found without a backend round trip.
func (s *StatusService) Status(ctx context.Context, jobID string) (*Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, NotFound(jobID)
	}
	return s.reader.Get(ctx, jobID)
}

func (s *StatusService) Stats(ctx context.Context) (*Stats, error) {
	return s.reader.Stats(ctx)
}

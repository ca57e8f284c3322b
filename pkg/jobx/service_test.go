package jobx_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingReader records backend calls made through the status service.
type countingReader struct {
	jobx.JobStatusReader
	gets int
}

func (c *countingReader) Get(ctx context.Context, id string) (*jobx.Job, error) {
	c.gets++
	return c.JobStatusReader.Get(ctx, id)
}

func TestSubmitThenStatus(t *testing.T) {
	ctx := context.Background()
	q := jobxmemory.NewMemoryQueue()
	submitter := jobx.NewSubmitter(q)
	status := jobx.NewStatusService(q)

	payload := jobx.Payload{"file_path": "uploads/a.pdf", "query": "summary"}
	id, err := submitter.Submit(ctx, payload)
	require.NoError(t, err)

	payload["query"] = "changed after submit"

	job, err := status.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusPending, job.Status)
	assert.Equal(t, "summary", job.Payload.String("query"))

	leased, err := q.Lease(ctx, "w1", time.Minute, 0)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, leased.ID, "w1", []byte(`{"status":"success"}`)))

	job, err = status.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, jobx.StatusCompleted, job.Status)

	stats, err := status.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, jobx.BackendMemory, stats.Backend)
	assert.Equal(t, int64(1), stats.Completed)
}

func TestSubmitRejectsEmptyPayload(t *testing.T) {
	submitter := jobx.NewSubmitter(jobxmemory.NewMemoryQueue())

	_, err := submitter.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, jobx.ErrInvalidPayload))

	e, ok := errx.As(err)
	require.True(t, ok)
	assert.Equal(t, 400, e.HTTPStatus)
}

func TestStatusOfUnknownJob(t *testing.T) {
	reader := &countingReader{JobStatusReader: jobxmemory.NewMemoryQueue()}
	status := jobx.NewStatusService(reader)

	_, err := status.Status(context.Background(), "not-a-uuid")
	assert.True(t, jobx.IsNotFound(err))
	assert.Equal(t, 0, reader.gets)

	_, err = status.Status(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	assert.True(t, jobx.IsNotFound(err))
	assert.Equal(t, 1, reader.gets)
}

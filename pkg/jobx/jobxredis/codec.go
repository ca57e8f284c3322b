package jobxredis

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
)

const (
	fieldID          = "id"
	fieldStatus      = "status"
	fieldPayload     = "payload"
	fieldResult      = "result"
	fieldError       = "error"
	fieldAttempts    = "attempts"
	fieldCreatedAt   = "created_at"
	fieldUpdatedAt   = "updated_at"
	fieldLeaseOwner  = "lease_owner"
	fieldLeaseExpiry = "lease_expiry"
)

// timeLayout is RFC 3339 with a fixed nine-digit fraction, so stored
// timestamps order correctly as strings inside the Lua scripts.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// encodeNewJob returns the hash fields of a freshly enqueued job.
func encodeNewJob(job *jobx.Job) (map[string]any, error) {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", job.ID)
	}
	return map[string]any{
		fieldID:        job.ID,
		fieldStatus:    string(job.Status),
		fieldPayload:   string(payload),
		fieldAttempts:  job.Attempts,
		fieldCreatedAt: formatTime(job.CreatedAt),
		fieldUpdatedAt: formatTime(job.UpdatedAt),
	}, nil
}

// decodeJob rebuilds a job from HGETALL output.
func decodeJob(fields map[string]string) (*jobx.Job, error) {
	id := fields[fieldID]
	job := &jobx.Job{
		ID:         id,
		Status:     jobx.Status(fields[fieldStatus]),
		Error:      fields[fieldError],
		LeaseOwner: fields[fieldLeaseOwner],
	}

	if !job.Status.Valid() {
		return nil, redisErrors.New(ErrUnmarshal).WithDetail("job_id", id).WithDetail("status", job.Status)
	}

	if raw := fields[fieldPayload]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Payload); err != nil {
			return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id)
		}
	}
	if raw := fields[fieldResult]; raw != "" {
		job.Result = json.RawMessage(raw)
	}

	var err error
	if raw := fields[fieldAttempts]; raw != "" {
		if job.Attempts, err = strconv.Atoi(raw); err != nil {
			return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id)
		}
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id)
	}
	if raw := fields[fieldLeaseExpiry]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, redisErrors.NewWithCause(ErrUnmarshal, err).WithDetail("job_id", id)
		}
		expiry := time.UnixMilli(ms).UTC()
		job.LeaseExpiry = &expiry
	}

	return job, nil
}

// pairsToMap converts a flat HGETALL reply from a script into a map.
func pairsToMap(reply []any) map[string]string {
	fields := make(map[string]string, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		k, _ := reply[i].(string)
		v, _ := reply[i+1].(string)
		fields[k] = v
	}
	return fields
}

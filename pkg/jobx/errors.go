package jobx

import (
	"net/http"

	"github.com/Abraxas-365/docqueue/pkg/errx"
)

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrBackendUnavailable = jobxErrors.Register("BACKEND_UNAVAILABLE", errx.TypeExternal, http.StatusServiceUnavailable, "Queue backend unavailable")
	ErrJobNotFound        = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Job not found")
	ErrHandlerFailure     = jobxErrors.Register("HANDLER_FAILURE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Job handler failed")
	ErrStaleLease         = jobxErrors.Register("STALE_LEASE", errx.TypeConflict, http.StatusConflict, "Lease is no longer held by this worker")
	ErrInvalidPayload     = jobxErrors.Register("INVALID_PAYLOAD", errx.TypeValidation, http.StatusBadRequest, "Invalid job payload")
	ErrAlreadyRunning     = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, http.StatusConflict, "Worker pool is already running")
)

// Constructors shared by every backend so callers see the same codes and
// details whichever one is active.

func NotFound(jobID string) *errx.Error {
	return jobxErrors.New(ErrJobNotFound).WithDetail("job_id", jobID)
}

func StaleLease(jobID, workerID string) *errx.Error {
	return jobxErrors.New(ErrStaleLease).
		WithDetail("job_id", jobID).
		WithDetail("worker_id", workerID)
}

func Unavailable(op string, cause error) *errx.Error {
	return jobxErrors.NewWithCause(ErrBackendUnavailable, cause).WithDetail("op", op)
}

func InvalidPayload(reason string) *errx.Error {
	return jobxErrors.NewWithMessage(ErrInvalidPayload, reason)
}

func IsNotFound(err error) bool { return errx.IsCode(err, ErrJobNotFound) }
func IsStaleLease(err error) bool { return errx.IsCode(err, ErrStaleLease) }
func IsUnavailable(err error) bool { return errx.IsCode(err, ErrBackendUnavailable) }

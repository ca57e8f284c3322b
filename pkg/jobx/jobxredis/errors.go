package jobxredis

import (
	"errors"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/redis/go-redis/v9"
)

var redisErrors = errx.NewRegistry("JOBX_REDIS")

var (
	ErrScript    = redisErrors.Register("SCRIPT", errx.TypeInternal, 500, "Redis script failed")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)

// wrapErr classifies a go-redis error. Replies carrying a server error
// (a broken script, WRONGTYPE) are internal; anything else means the store
// could not be reached in time.
func wrapErr(op string, err error) error {
	var serverErr redis.Error
	if errors.As(err, &serverErr) {
		return redisErrors.NewWithCause(ErrScript, err).WithDetail("op", op)
	}
	return jobx.Unavailable(op, err)
}

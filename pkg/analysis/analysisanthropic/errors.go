package analysisanthropic

import (
	"errors"
	"net/http"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/anthropics/anthropic-sdk-go"
)

var errorRegistry = errx.NewRegistry("ANTHROPIC")

var (
	ErrMissingAPIKey = errorRegistry.Register("MISSING_API_KEY", errx.TypeValidation, http.StatusBadRequest, "Anthropic API key is not configured")
	ErrAPIRequest    = errorRegistry.Register("API_REQUEST_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to make request to Anthropic API")
	ErrUnauthorized  = errorRegistry.Register("API_UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or missing Anthropic API key")
	ErrRateLimit     = errorRegistry.Register("API_RATE_LIMIT", errx.TypeExternal, http.StatusTooManyRequests, "Anthropic API rate limit exceeded")
	ErrOverloaded    = errorRegistry.Register("API_OVERLOADED", errx.TypeExternal, http.StatusServiceUnavailable, "Anthropic API is overloaded")
	ErrBadRequest    = errorRegistry.Register("API_BAD_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Anthropic API rejected the request")
)

// parseError maps SDK errors by HTTP status.
func parseError(err error) *errx.Error {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return errorRegistry.NewWithCause(ErrAPIRequest, err)
	}

	code := ErrAPIRequest
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		code = ErrUnauthorized
	case apiErr.StatusCode == http.StatusTooManyRequests:
		code = ErrRateLimit
	case apiErr.StatusCode == 529 || apiErr.StatusCode == http.StatusServiceUnavailable:
		code = ErrOverloaded
	case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		code = ErrBadRequest
	}
	return errorRegistry.NewWithCause(code, err).WithDetail("status_code", apiErr.StatusCode)
}

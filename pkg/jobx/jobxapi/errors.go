package jobxapi

import (
	"errors"
	"net/http"

	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var apiErrors = errx.NewRegistry("JOBX_API")

var (
	ErrMissingFile     = apiErrors.Register("MISSING_FILE", errx.TypeValidation, http.StatusBadRequest, "A file must be uploaded in the 'file' field")
	ErrUnsupportedFile = apiErrors.Register("UNSUPPORTED_FILE", errx.TypeValidation, http.StatusBadRequest, "Only PDF files are accepted")
	ErrFileTooLarge    = apiErrors.Register("FILE_TOO_LARGE", errx.TypeValidation, http.StatusRequestEntityTooLarge, "Uploaded file is too large")
	ErrInvalidRequest  = apiErrors.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "Invalid request")
)

// validationError turns validator output into a coded error listing the
// failed fields.
func validationError(err error) *errx.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apiErrors.NewWithCause(ErrInvalidRequest, err)
	}

	fields := make(map[string]any, len(verrs))
	code := ErrInvalidRequest
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
		if fe.Tag() == "pdf" {
			code = ErrUnsupportedFile
		}
	}
	return apiErrors.NewWithCause(code, err).WithDetail("fields", fields)
}

// ErrorHandler writes errors as JSON. Coded errors keep their status and
// message; anything else becomes an opaque 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	requestID := c.Get(fiber.HeaderXRequestID)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"code":        "FIBER_ERROR",
			"message":     fe.Message,
			"status_code": fe.Code,
			"request_id":  requestID,
		})
	}

	e := errx.FromError(err)
	entry := logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": requestID,
		"code":       e.Code,
	}).WithError(err)
	if e.HTTPStatus >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}

	resp := e.ToHTTPResponse()
	return c.Status(resp.StatusCode).JSON(fiber.Map{
		"code":        resp.Code,
		"message":     resp.Message,
		"type":        resp.Type,
		"details":     resp.Details,
		"status_code": resp.StatusCode,
		"request_id":  requestID,
	})
}

// Package jobxapi exposes document submission and job status over HTTP.
package jobxapi

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/fsx"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// Uploader is the storage the handlers write documents to.
type Uploader interface {
	fsx.FileWriter
	fsx.FileDeleter
}

// Handlers serves the queue endpoints.
type Handlers struct {
	submitter      *jobx.Submitter
	status         *jobx.StatusService
	files          Uploader
	maxUploadBytes int64
	validate       *validator.Validate
}

type Option func(*Handlers)

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

func NewHandlers(submitter *jobx.Submitter, status *jobx.StatusService, files Uploader, opts ...Option) *Handlers {
	v := validator.New()
	_ = v.RegisterValidation("pdf", func(fl validator.FieldLevel) bool {
		return strings.HasSuffix(strings.ToLower(fl.Field().String()), ".pdf")
	})

	h := &Handlers{
		submitter:      submitter,
		status:         status,
		files:          files,
		maxUploadBytes: DefaultMaxUploadBytes,
		validate:       v,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handlers) RegisterRoutes(router fiber.Router) {
	router.Post("/analyze-async", h.Submit)
	router.Get("/status/:id", h.Status)
	router.Get("/queue/stats", h.Stats)
	router.Get("/health", h.Health)
}

type submitRequest struct {
	Filename string `validate:"required,pdf"`
	Size     int64  `validate:"gt=0"`
	Query    string `validate:"max=4000"`
}

// SubmitResponse is returned with 202 Accepted.
type SubmitResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}

// Submit stores the uploaded PDF and queues it for analysis.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apiErrors.NewWithCause(ErrMissingFile, err)
	}

	req := submitRequest{
		Filename: fh.Filename,
		Size:     fh.Size,
		Query:    strings.TrimSpace(c.FormValue("query")),
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err)
	}
	if req.Size > h.maxUploadBytes {
		return apiErrors.New(ErrFileTooLarge).WithDetails(map[string]any{
			"size":      req.Size,
			"max_bytes": h.maxUploadBytes,
		})
	}
	if req.Query == "" {
		req.Query = analysis.DefaultQuery
	}

	f, err := fh.Open()
	if err != nil {
		return apiErrors.NewWithCause(ErrMissingFile, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return apiErrors.NewWithCause(ErrMissingFile, err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return apiErrors.New(ErrFileTooLarge).WithDetail("max_bytes", h.maxUploadBytes)
	}

	ctx := c.UserContext()
	key := uuid.NewString() + ".pdf"
	if err := h.files.WriteFile(ctx, key, data); err != nil {
		return err
	}

	size := int64(len(data))
	jobID, err := h.submitter.Submit(ctx, analysis.Request{
		FilePath: key,
		Query:    req.Query,
		Filename: req.Filename,
		FileSize: &size,
	}.Payload())
	if err != nil {
		h.discardUpload(key)
		return err
	}

	logx.WithFields(logx.Fields{
		"job_id":   jobID,
		"filename": req.Filename,
		"size":     size,
	}).Info("jobxapi: document queued")

	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		JobID:     jobID,
		Status:    "queued",
		Message:   "Analysis queued. Poll the status URL for the result.",
		StatusURL: "/status/" + jobID,
	})
}

// discardUpload removes a document whose job never made it into the queue.
func (h *Handlers) discardUpload(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.files.DeleteFile(ctx, key); err != nil {
		logx.WithError(err).WithField("file_path", key).Warn("jobxapi: failed to remove orphaned upload")
	}
}

// StatusResponse is the public view of a job record.
type StatusResponse struct {
	JobID     string          `json:"job_id"`
	Status    jobx.Status     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Attempts  int             `json:"attempts"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (h *Handlers) Status(c *fiber.Ctx) error {
	job, err := h.status.Status(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	resp := StatusResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
		Attempts:  job.Attempts,
	}
	if job.Status.IsTerminal() {
		resp.Result = job.Result
		resp.Error = job.Error
	}
	return c.JSON(resp)
}

func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.status.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Health reports the active backend. It answers 503 when the backend cannot
// produce stats.
func (h *Handlers) Health(c *fiber.Ctx) error {
	stats, err := h.status.Stats(c.UserContext())
	if err != nil {
		logx.WithError(err).Warn("jobxapi: health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  jobx.FailureMessage(err),
		})
	}
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"queue_backend": stats.Backend,
		"durable":       stats.Backend == jobx.BackendRedis,
		"queue_length":  stats.Pending,
		"processing":    stats.Processing,
	})
}

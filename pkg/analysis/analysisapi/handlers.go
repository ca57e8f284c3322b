// Package analysisapi serves stored analysis results over HTTP.
package analysisapi

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
	maxQueryPreview    = 100
)

var apiErrors = errx.NewRegistry("ANALYSIS_API")

var ErrStoreDisabled = apiErrors.Register("STORE_DISABLED", errx.TypeExternal, http.StatusServiceUnavailable, "Database not available")

// Handlers exposes the result store. A nil store answers 503 on every route.
type Handlers struct {
	store analysis.ResultStore
	now   func() time.Time
}

func NewHandlers(store analysis.ResultStore) *Handlers {
	return &Handlers{store: store, now: time.Now}
}

func (h *Handlers) RegisterRoutes(router fiber.Router) {
	router.Get("/analyses/recent", h.Recent)
	router.Get("/analyses/job/:id", h.ByJob)
	router.Get("/stats", h.Stats)
}

// Summary is the list view of a stored result.
type Summary struct {
	ID             string    `json:"id"`
	JobID          string    `json:"job_id"`
	Filename       string    `json:"filename"`
	Query          string    `json:"query"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
	ProcessingTime float64   `json:"processing_time"`
	Status         string    `json:"status"`
}

func (h *Handlers) Recent(c *fiber.Ctx) error {
	if h.store == nil {
		return apiErrors.New(ErrStoreDisabled)
	}

	limit := c.QueryInt("limit", defaultRecentLimit)
	if limit < 1 {
		limit = defaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)

	results, err := h.store.Recent(c.UserContext(), limit)
	if err != nil {
		return err
	}

	items := make([]Summary, 0, len(results))
	for _, r := range results {
		items = append(items, Summary{
			ID:             r.ID,
			JobID:          r.JobID,
			Filename:       r.Filename,
			Query:          preview(r.Query),
			Summary:        r.Summary,
			CreatedAt:      r.CreatedAt,
			ProcessingTime: r.ProcessingTime,
			Status:         "completed",
		})
	}
	return c.JSON(fiber.Map{
		"status":   "success",
		"count":    len(items),
		"analyses": items,
	})
}

// ByJob returns the full stored result of a job.
func (h *Handlers) ByJob(c *fiber.Ctx) error {
	if h.store == nil {
		return apiErrors.New(ErrStoreDisabled)
	}

	r, err := h.store.FindByJobID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":              r.ID,
		"job_id":          r.JobID,
		"filename":        r.Filename,
		"file_size":       r.FileSize,
		"query":           r.Query,
		"analysis":        r.Analysis,
		"summary":         r.Summary,
		"analysis_type":   r.AnalysisType,
		"processing_time": r.ProcessingTime,
		"markers":         r.Markers,
		"created_at":      r.CreatedAt,
		"completed_at":    r.CompletedAt,
	})
}

func (h *Handlers) Stats(c *fiber.Ctx) error {
	if h.store == nil {
		return apiErrors.New(ErrStoreDisabled)
	}

	stats, err := h.store.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":     "success",
		"statistics": stats,
		"timestamp":  h.now().Unix(),
	})
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxQueryPreview {
		return s
	}
	return string(r[:maxQueryPreview]) + "..."
}

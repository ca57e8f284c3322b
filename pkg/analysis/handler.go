package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/fsx"
	"github.com/Abraxas-365/docqueue/pkg/jobx"
	"github.com/Abraxas-365/docqueue/pkg/logx"
	"github.com/google/uuid"
)

// Handler analyses the document referenced by a job payload.
type Handler struct {
	files    fsx.FileReader
	analyzer Analyzer
	store    ResultStore
	now      func() time.Time
}

// NewHandler builds the job handler. store may be nil, in which case results
// live only on the job record.
func NewHandler(files fsx.FileReader, analyzer Analyzer, store ResultStore) *Handler {
	return &Handler{
		files:    files,
		analyzer: analyzer,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle satisfies jobx.HandlerFunc.
func (h *Handler) Handle(ctx context.Context, job *jobx.Job) (json.RawMessage, error) {
	req, err := RequestFromPayload(job.Payload)
	if err != nil {
		return nil, err
	}

	data, err := h.files.ReadFile(ctx, req.FilePath)
	if err != nil {
		if fsx.IsNotFound(err) {
			return nil, analysisErrors.NewWithCause(ErrDocumentMissing, err).WithDetail("file_path", req.FilePath)
		}
		return nil, err
	}

	started := h.now()
	text, err := h.analyzer.Analyze(ctx, Document{
		Filename:    req.Filename,
		ContentType: fsx.ContentType(req.FilePath),
		Data:        data,
	}, req.Query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, analysisErrors.New(ErrEmptyAnalysis).WithDetail("job_id", job.ID)
	}
	finished := h.now()
	elapsed := finished.Sub(started).Seconds()

	resp := Response{
		Status:               "success",
		Query:                req.Query,
		Analysis:             text,
		FileProcessed:        req.Filename,
		ProcessingTime:       elapsed,
		AnalysisType:         AnalysisType,
		SpecialistsConsulted: Specialists,
		Markers:              ExtractMarkers(text),
		Disclaimer:           Disclaimer,
	}
	resp.AnalysisID = h.save(ctx, job.ID, req, resp, started, finished)

	return json.Marshal(resp)
}

// save stores the result and returns its id. A store failure does not fail
// the job; the result still reaches the caller through the job record.
func (h *Handler) save(ctx context.Context, jobID string, req Request, resp Response, started, finished time.Time) string {
	if h.store == nil {
		return ""
	}

	result := &Result{
		ID:             uuid.NewString(),
		JobID:          jobID,
		Filename:       req.Filename,
		FileSize:       req.FileSize,
		Query:          req.Query,
		Analysis:       resp.Analysis,
		Summary:        Summarize(resp.Analysis),
		AnalysisType:   AnalysisType,
		ProcessingTime: resp.ProcessingTime,
		Markers:        resp.Markers,
		CreatedAt:      started,
		CompletedAt:    finished,
	}
	if err := h.store.Save(ctx, result); err != nil {
		logx.WithError(err).WithField("job_id", jobID).Warn("analysis: failed to persist result")
		return ""
	}

	logx.WithFields(logx.Fields{"job_id": jobID, "analysis_id": result.ID}).Info("analysis: result saved")
	return result.ID
}

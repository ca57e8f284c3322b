// Package analysis runs uploaded lab reports through a language model and
// records the outcome. Its Handler is the work function of the job pool.
package analysis

import (
	"context"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/jobx"
)

// DefaultQuery is used when a submission carries no question.
const DefaultQuery = "Please provide a comprehensive analysis of my blood test results"

const (
	AnalysisType = "comprehensive_medical_review"
	Disclaimer   = "This analysis is for educational purposes only. Always consult with qualified healthcare professionals for medical decisions."
)

// Specialists lists the review perspectives the analyzer prompt asks for.
var Specialists = []string{
	"Medical Laboratory Analyst",
	"Document Verification Specialist",
	"Clinical Nutritionist",
	"Exercise Physiologist",
}

// Payload keys of an analysis job.
const (
	KeyFilePath = "file_path"
	KeyQuery    = "query"
	KeyFilename = "filename"
	KeyFileSize = "file_size"
)

// Request is the typed view of an analysis job payload.
type Request struct {
	FilePath string
	Query    string
	Filename string
	FileSize *int64
}

func (r Request) Payload() jobx.Payload {
	p := jobx.Payload{
		KeyFilePath: r.FilePath,
		KeyQuery:    r.Query,
		KeyFilename: r.Filename,
	}
	if r.FileSize != nil {
		p[KeyFileSize] = *r.FileSize
	}
	return p
}

// RequestFromPayload validates and decodes a job payload.
func RequestFromPayload(p jobx.Payload) (Request, error) {
	req := Request{
		FilePath: p.String(KeyFilePath),
		Query:    p.String(KeyQuery),
		Filename: p.String(KeyFilename),
	}
	if req.FilePath == "" {
		return Request{}, analysisErrors.New(ErrInvalidRequest).WithDetail("missing", KeyFilePath)
	}
	if req.Query == "" {
		req.Query = DefaultQuery
	}
	if req.Filename == "" {
		req.Filename = "unknown"
	}
	if size, ok := p.Int64(KeyFileSize); ok {
		req.FileSize = &size
	}
	return req, nil
}

// Document is the file handed to an Analyzer.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Analyzer produces the free-text analysis of a document.
type Analyzer interface {
	Analyze(ctx context.Context, doc Document, query string) (string, error)
}

// Result is the persisted record of one analysis.
type Result struct {
	ID             string
	JobID          string
	Filename       string
	FileSize       *int64
	Query          string
	Analysis       string
	Summary        string
	AnalysisType   string
	ProcessingTime float64
	Markers        map[string]float64
	CreatedAt      time.Time
	CompletedAt    time.Time
}

// ResultStore persists analysis results.
type ResultStore interface {
	Save(ctx context.Context, result *Result) error
	FindByJobID(ctx context.Context, jobID string) (*Result, error)
	Recent(ctx context.Context, limit int) ([]*Result, error)
	Stats(ctx context.Context) (*ResultStats, error)
}

// ResultStats aggregates the stored results.
type ResultStats struct {
	TotalAnalyses     int64   `json:"total_analyses" db:"total_analyses"`
	AvgProcessingTime float64 `json:"avg_processing_time" db:"avg_processing_time"`
}

// Response is the job result document returned to status callers.
type Response struct {
	Status               string             `json:"status"`
	Query                string             `json:"query"`
	Analysis             string             `json:"analysis"`
	FileProcessed        string             `json:"file_processed"`
	ProcessingTime       float64            `json:"processing_time"`
	AnalysisType         string             `json:"analysis_type"`
	SpecialistsConsulted []string           `json:"specialists_consulted"`
	Markers              map[string]float64 `json:"markers,omitempty"`
	Disclaimer           string             `json:"disclaimer"`
	AnalysisID           string             `json:"analysis_id,omitempty"`
}

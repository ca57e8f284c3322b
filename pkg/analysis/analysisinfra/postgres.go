// Package analysisinfra persists analysis results in PostgreSQL.
package analysisinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var storeErrors = errx.NewRegistry("ANALYSIS_STORE")

var ErrDuplicateResult = storeErrors.Register("DUPLICATE_RESULT", errx.TypeConflict, http.StatusConflict, "Analysis result already exists")

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id              TEXT PRIMARY KEY,
	job_id          TEXT NOT NULL,
	filename        TEXT NOT NULL,
	file_size       BIGINT,
	query           TEXT NOT NULL,
	analysis        TEXT NOT NULL,
	summary         TEXT NOT NULL,
	analysis_type   TEXT NOT NULL,
	processing_time DOUBLE PRECISION NOT NULL,
	markers_json    TEXT NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_job_id ON analysis_results (job_id);
CREATE INDEX IF NOT EXISTS idx_analysis_results_created_at ON analysis_results (created_at DESC)`

const selectColumns = `id, job_id, filename, file_size, query, analysis, summary, analysis_type, processing_time, markers_json, created_at, completed_at`

// PostgresResultStore implements analysis.ResultStore.
type PostgresResultStore struct {
	db *sqlx.DB
}

func NewPostgresResultStore(db *sqlx.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// Migrate creates the results table when it does not exist.
func (s *PostgresResultStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errx.Wrap(err, "failed to migrate analysis_results", errx.TypeInternal)
	}
	return nil
}

func (s *PostgresResultStore) Save(ctx context.Context, result *analysis.Result) error {
	query := `
		INSERT INTO analysis_results (
			id, job_id, filename, file_size, query, analysis, summary,
			analysis_type, processing_time, markers_json, created_at, completed_at
		) VALUES (
			:id, :job_id, :filename, :file_size, :query, :analysis, :summary,
			:analysis_type, :processing_time, :markers_json, :created_at, :completed_at
		)`

	row, err := toPersistence(result)
	if err != nil {
		return err
	}

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return storeErrors.NewWithCause(ErrDuplicateResult, err).WithDetail("id", result.ID)
		}
		return errx.Wrap(err, "failed to save analysis result", errx.TypeInternal).
			WithDetail("job_id", result.JobID)
	}
	return nil
}

// FindByJobID returns the newest result recorded for a job. A reclaimed job
// can produce more than one.
func (s *PostgresResultStore) FindByJobID(ctx context.Context, jobID string) (*analysis.Result, error) {
	var row resultRow
	query := `SELECT ` + selectColumns + ` FROM analysis_results WHERE job_id = $1 ORDER BY completed_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.ResultNotFound(jobID)
		}
		return nil, errx.Wrap(err, "failed to find analysis result", errx.TypeInternal).
			WithDetail("job_id", jobID)
	}
	return row.toDomain()
}

func (s *PostgresResultStore) Recent(ctx context.Context, limit int) ([]*analysis.Result, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []resultRow
	query := `SELECT ` + selectColumns + ` FROM analysis_results ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errx.Wrap(err, "failed to list analysis results", errx.TypeInternal)
	}

	results := make([]*analysis.Result, 0, len(rows))
	for _, r := range rows {
		res, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *PostgresResultStore) Stats(ctx context.Context) (*analysis.ResultStats, error) {
	var stats analysis.ResultStats
	query := `SELECT COUNT(*) AS total_analyses, COALESCE(ROUND(AVG(processing_time)::numeric, 2), 0)::float8 AS avg_processing_time FROM analysis_results`
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, errx.Wrap(err, "failed to aggregate analysis results", errx.TypeInternal)
	}
	return &stats, nil
}

type resultRow struct {
	ID             string    `db:"id"`
	JobID          string    `db:"job_id"`
	Filename       string    `db:"filename"`
	FileSize       *int64    `db:"file_size"`
	Query          string    `db:"query"`
	Analysis       string    `db:"analysis"`
	Summary        string    `db:"summary"`
	AnalysisType   string    `db:"analysis_type"`
	ProcessingTime float64   `db:"processing_time"`
	MarkersJSON    string    `db:"markers_json"`
	CreatedAt      time.Time `db:"created_at"`
	CompletedAt    time.Time `db:"completed_at"`
}

func toPersistence(r *analysis.Result) (resultRow, error) {
	markers := r.Markers
	if markers == nil {
		markers = map[string]float64{}
	}
	raw, err := json.Marshal(markers)
	if err != nil {
		return resultRow{}, errx.Wrap(err, "failed to encode markers", errx.TypeInternal)
	}
	return resultRow{
		ID:             r.ID,
		JobID:          r.JobID,
		Filename:       r.Filename,
		FileSize:       r.FileSize,
		Query:          r.Query,
		Analysis:       r.Analysis,
		Summary:        r.Summary,
		AnalysisType:   r.AnalysisType,
		ProcessingTime: r.ProcessingTime,
		MarkersJSON:    string(raw),
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}, nil
}

func (r resultRow) toDomain() (*analysis.Result, error) {
	var markers map[string]float64
	if r.MarkersJSON != "" {
		if err := json.Unmarshal([]byte(r.MarkersJSON), &markers); err != nil {
			return nil, errx.Wrap(err, "failed to decode markers", errx.TypeInternal).WithDetail("id", r.ID)
		}
	}
	return &analysis.Result{
		ID:             r.ID,
		JobID:          r.JobID,
		Filename:       r.Filename,
		FileSize:       r.FileSize,
		Query:          r.Query,
		Analysis:       r.Analysis,
		Summary:        r.Summary,
		AnalysisType:   r.AnalysisType,
		ProcessingTime: r.ProcessingTime,
		Markers:        markers,
		CreatedAt:      r.CreatedAt,
		CompletedAt:    r.CompletedAt,
	}, nil
}

var _ analysis.ResultStore = (*PostgresResultStore)(nil)

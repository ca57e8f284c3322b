package analysisinfra

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rowColumns = []string{
	"id", "job_id", "filename", "file_size", "query", "analysis", "summary",
	"analysis_type", "processing_time", "markers_json", "created_at", "completed_at",
}

func newMockStore(t *testing.T) (*PostgresResultStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresResultStore(sqlx.NewDb(db, "postgres")), mock
}

func sampleResult() *analysis.Result {
	size := int64(2048)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &analysis.Result{
		ID:             "res-1",
		JobID:          "job-1",
		Filename:       "report.pdf",
		FileSize:       &size,
		Query:          "glucose?",
		Analysis:       "Glucose: 95 mg/dL",
		Summary:        "Glucose: 95 mg/dL",
		AnalysisType:   analysis.AnalysisType,
		ProcessingTime: 1.5,
		Markers:        map[string]float64{"glucose": 95},
		CreatedAt:      at,
		CompletedAt:    at.Add(2 * time.Second),
	}
}

func TestSaveInsertsRow(t *testing.T) {
	store, mock := newMockStore(t)
	r := sampleResult()

	mock.ExpectExec("INSERT INTO analysis_results").
		WithArgs(r.ID, r.JobID, r.Filename, *r.FileSize, r.Query, r.Analysis, r.Summary,
			r.AnalysisType, r.ProcessingTime, `{"glucose":95}`, r.CreatedAt, r.CompletedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Save(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMapsUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO analysis_results").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Save(context.Background(), sampleResult())
	assert.True(t, errx.IsCode(err, ErrDuplicateResult))
}

func TestFindByJobID(t *testing.T) {
	store, mock := newMockStore(t)
	r := sampleResult()

	mock.ExpectQuery("SELECT (.+) FROM analysis_results WHERE job_id = \\$1").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(rowColumns).AddRow(
			r.ID, r.JobID, r.Filename, *r.FileSize, r.Query, r.Analysis, r.Summary,
			r.AnalysisType, r.ProcessingTime, `{"glucose":95}`, r.CreatedAt, r.CompletedAt,
		))

	got, err := store.FindByJobID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByJobIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM analysis_results").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := store.FindByJobID(context.Background(), "missing")
	assert.True(t, errx.IsCode(err, analysis.ErrResultNotFound))
}

func TestRecentDefaultsLimit(t *testing.T) {
	store, mock := newMockStore(t)
	r := sampleResult()

	mock.ExpectQuery("SELECT (.+) FROM analysis_results ORDER BY created_at DESC LIMIT \\$1").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("res-2", "job-2", "b.pdf", nil, "q", "text", "text", r.AnalysisType, 0.5, "{}", r.CreatedAt, r.CompletedAt).
			AddRow(r.ID, r.JobID, r.Filename, *r.FileSize, r.Query, r.Analysis, r.Summary, r.AnalysisType, r.ProcessingTime, `{"glucose":95}`, r.CreatedAt, r.CompletedAt))

	got, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "res-2", got[0].ID)
	assert.Nil(t, got[0].FileSize)
	assert.Empty(t, got[0].Markers)
	assert.Equal(t, 95.0, got[1].Markers["glucose"])
}

func TestStatsAggregates(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total_analyses").
		WillReturnRows(sqlmock.NewRows([]string{"total_analyses", "avg_processing_time"}).AddRow(int64(7), 2.35))

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 7, stats.TotalAnalyses)
	assert.Equal(t, 2.35, stats.AvgProcessingTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

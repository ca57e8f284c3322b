package analysisapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/analysis/analysisapi"
	"github.com/Abraxas-365/docqueue/pkg/jobx/jobxapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	results   []*analysis.Result
	lastLimit int
}

func (m *memoryStore) Save(ctx context.Context, r *analysis.Result) error {
	m.results = append(m.results, r)
	return nil
}

func (m *memoryStore) FindByJobID(ctx context.Context, jobID string) (*analysis.Result, error) {
	for _, r := range m.results {
		if r.JobID == jobID {
			return r, nil
		}
	}
	return nil, analysis.ResultNotFound(jobID)
}

func (m *memoryStore) Recent(ctx context.Context, limit int) ([]*analysis.Result, error) {
	m.lastLimit = limit
	return m.results[:min(limit, len(m.results))], nil
}

func (m *memoryStore) Stats(ctx context.Context) (*analysis.ResultStats, error) {
	return &analysis.ResultStats{TotalAnalyses: int64(len(m.results)), AvgProcessingTime: 1.25}, nil
}

func newApp(store analysis.ResultStore) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: jobxapi.ErrorHandler})
	analysisapi.NewHandlers(store).RegisterRoutes(app)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func seededStore() *memoryStore {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return &memoryStore{results: []*analysis.Result{
		{ID: "r1", JobID: "job-1", Filename: "a.pdf", Query: strings.Repeat("q", 150), Summary: "s1", ProcessingTime: 1, CreatedAt: at},
		{ID: "r2", JobID: "job-2", Filename: "b.pdf", Query: "short", Summary: "s2", ProcessingTime: 1.5, CreatedAt: at},
	}}
}

func TestRecent(t *testing.T) {
	store := seededStore()
	app := newApp(store)

	code, body := get(t, app, "/analyses/recent?limit=1")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, store.lastLimit)
	assert.EqualValues(t, 1, body["count"])

	items := body["analyses"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "r1", first["id"])
	assert.Equal(t, strings.Repeat("q", 100)+"...", first["query"])
}

func TestRecentClampsLimit(t *testing.T) {
	store := seededStore()
	app := newApp(store)

	_, _ = get(t, app, "/analyses/recent?limit=5000")
	assert.Equal(t, 100, store.lastLimit)

	_, _ = get(t, app, "/analyses/recent?limit=0")
	assert.Equal(t, 10, store.lastLimit)
}

func TestByJob(t *testing.T) {
	app := newApp(seededStore())

	code, body := get(t, app, "/analyses/job/job-2")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "r2", body["id"])
	assert.Equal(t, "short", body["query"])

	code, body = get(t, app, "/analyses/job/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, analysis.ErrResultNotFound.Code, body["code"])
}

func TestStats(t *testing.T) {
	code, body := get(t, newApp(seededStore()), "/stats")
	require.Equal(t, http.StatusOK, code)

	stats := body["statistics"].(map[string]any)
	assert.EqualValues(t, 2, stats["total_analyses"])
	assert.Equal(t, 1.25, stats["avg_processing_time"])
}

func TestDisabledStoreAnswers503(t *testing.T) {
	app := newApp(nil)

	for _, target := range []string{"/analyses/recent", "/analyses/job/job-1", "/stats"} {
		code, body := get(t, app, target)
		assert.Equal(t, http.StatusServiceUnavailable, code, target)
		assert.Equal(t, analysisapi.ErrStoreDisabled.Code, body["code"], target)
	}
}

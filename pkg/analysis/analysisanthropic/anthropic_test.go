package analysisanthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/Abraxas-365/docqueue/pkg/errx"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cannedMessage = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [
    {"type": "text", "text": "Glucose: 95 mg/dL is within range. "},
    {"type": "text", "text": "Consult your physician."}
  ],
  "stop_reason": "end_turn",
  "stop_sequence": null,
  "usage": {"input_tokens": 120, "output_tokens": 24}
}`

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *Analyzer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := New("test-key", []Option{WithModel("claude-test"), WithMaxTokens(512)},
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
	require.NoError(t, err)
	return a
}

func TestAnalyzeSendsPDFAsDocument(t *testing.T) {
	var body map[string]any
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cannedMessage))
	})

	text, err := a.Analyze(context.Background(), analysis.Document{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
	}, "How is my glucose?")
	require.NoError(t, err)
	assert.Equal(t, "Glucose: 95 mg/dL is within range. Consult your physician.", text)

	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 512, body["max_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	doc := content[0].(map[string]any)
	assert.Equal(t, "document", doc["type"])
	source := doc["source"].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), source["data"])
	assert.Equal(t, "How is my glucose?", content[1].(map[string]any)["text"])
}

func TestAnalyzeMapsAPIErrors(t *testing.T) {
	a := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	})

	_, err := a.Analyze(context.Background(), analysis.Document{ContentType: "text/plain", Data: []byte("x")}, "q")
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, analysis.ErrAnalyzerFailed))
	assert.True(t, errx.IsCode(err, ErrRateLimit))
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New("", nil)
	assert.True(t, errx.IsCode(err, ErrMissingAPIKey))
}

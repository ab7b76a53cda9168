package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_AgentCalls(t *testing.T) {
	m := NewMetrics()

	m.ObserveCall("ats_scanner", "success", 120*time.Millisecond)
	m.ObserveCall("ats_scanner", "success", 80*time.Millisecond)
	m.ObserveCall("ats_scanner", "cache_hit", time.Millisecond)
	m.ObserveRetry("ats_scanner")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.agentCalls.WithLabelValues("ats_scanner", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentCalls.WithLabelValues("ats_scanner", "cache_hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.agentRetries.WithLabelValues("ats_scanner")))
}

func TestMetrics_Requests(t *testing.T) {
	m := NewMetrics()

	m.ObserveRequest("POST /api/generate", http.MethodPost, http.StatusOK, time.Second)
	m.ObserveRequest("POST /api/generate", http.MethodPost, http.StatusInternalServerError, time.Second)
	m.ObserveIngest()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST /api/generate", "POST", "500")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsStored))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveCall("skills_analysis", "success", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cover_letter_agent_calls_total{agent="skills_analysis",outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

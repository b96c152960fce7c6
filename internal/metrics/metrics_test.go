package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic_advisor/internal/models"
)

func TestObserveAnalysis(t *testing.T) {
	m := New()

	m.ObserveAnalysis(OutcomeOK, 3*time.Millisecond)
	m.ObserveAnalysis(OutcomeOK, time.Millisecond)
	m.ObserveAnalysis(OutcomeConfigError, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues(OutcomeConfigError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.analysisDuration))
}

func TestObserveReconcile(t *testing.T) {
	m := New()

	m.ObserveReconcile(3, []models.Diagnostic{
		models.Warning(models.DiagScoreOutOfRange, "MT1003", 2, "score %v", 12),
		models.Warning(models.DiagScoreOutOfRange, "MT1005", 4, "score %v", 11),
		models.Notice(models.DiagEmptyCandidatePool, "none"),
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.skippedObservations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.diagnostics.WithLabelValues(string(models.DataQualityWarning), models.DiagScoreOutOfRange)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.diagnostics.WithLabelValues(string(models.EmptyResultNotice), models.DiagEmptyCandidatePool)))
}

func TestObserveHTTP(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/v1/analyze", http.MethodPost, 200, time.Millisecond)
	m.ObserveHTTP("", http.MethodGet, 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/v1/analyze", "POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "GET", "404")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis(OutcomeOK, time.Second)
		m.ObserveReconcile(1, nil)
		m.ObserveCandidates(2)
		m.ObserveHTTP("/", "GET", 200, time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveCandidates(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "advisor_retake_candidates_bucket")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

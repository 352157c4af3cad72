package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanterms/internal/domain"
	"loanterms/internal/metrics"
)

func TestObserveExtraction(t *testing.T) {
	m := metrics.New()
	m.ObserveExtraction("azure", domain.OutcomeSuccess, 2*time.Second)
	m.ObserveExtraction("azure", domain.OutcomeSuccess, time.Second)
	m.ObserveExtraction("azure", domain.OutcomeRateLimited, 100*time.Millisecond)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "loanterms_extractions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" {
					counts[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"success": 2, "rate_limited": 1}, counts)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObservePersist("store", nil)
	m.ObservePersist("archive", errors.New("boom"))
	m.ObserveHTTP(http.MethodPost, "/api/v1/extractions", http.StatusOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), `loanterms_records_persisted_total{result="error",target="archive"} 1`)
	assert.Contains(t, string(body), `loanterms_http_requests_total{method="POST",route="/api/v1/extractions",status="200"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveExtraction("azure", domain.OutcomeFailed, time.Second)
		m.ObservePersist("store", nil)
		m.ObserveHTTP("GET", "/", 200)
	})
}

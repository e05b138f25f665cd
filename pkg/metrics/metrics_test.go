package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.ObserveRun("web-app", "succeeded", 3*time.Minute)
	m.ObserveRun("web-app", "failed", time.Minute)
	m.ObserveStage("web-app", "build", "succeeded", 40*time.Second)
	m.ObserveStage("web-app", "deploy-prod", "skipped", 0)
	m.ApprovalRequested()
	m.ApprovalRequested()
	m.ApprovalResolved("approved")
	m.ObserveNotification("slack", nil)
	m.ObserveNotification("slack", errors.New("503"))
	m.ObserveSweep()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("web-app", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StagesTotal.WithLabelValues("web-app", "deploy-prod", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApprovalsPending))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("slack", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepRunsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.ObserveRun("p", "failed", time.Second)
		m.ApprovalRequested()
		m.ObserveNotification("webhook", nil)
	})
}

func TestServer_Handler(t *testing.T) {
	s := NewServer(MetricsConfig{})
	m := NewPipelineMetrics(s.GetRegistry())
	m.ObserveRun("web-app", "succeeded", time.Second)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `conveyor_runs_total{pipeline="web-app",status="succeeded"} 1`)

	// disabled servers do not listen
	require.NoError(t, s.Start())
	assert.NoError(t, s.Stop(t.Context()))
}

func TestServer_Mux(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(MetricsConfig{}).Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/heap", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	NewServer(MetricsConfig{Pprof: true}).Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/heap?debug=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewServer(MetricsConfig{Pprof: true}).Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

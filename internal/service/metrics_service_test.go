package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodPost, "/api/webhooks/stripe", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/checkout", http.StatusOK, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordWebhook("checkout.session.completed", "accepted")
	m.RecordReconciliation(string(OutcomeCommitted), time.Millisecond)
	m.RecordReconciliation(string(OutcomeDuplicate), time.Millisecond)
	m.RecordInvite(JobTypeAccessInvite, true)
	m.RecordInvite(JobTypeAccessInvite, false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.01)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snap.WebhooksReceived)
	assert.Equal(t, uint64(1), snap.EnrollmentsCommitted)
	assert.Equal(t, uint64(1), snap.InvitesSent)
	assert.Equal(t, uint64(1), snap.InvitesFailed)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsCountersAreLabelled(t *testing.T) {
	m := NewMetricsService()
	m.RecordReconciliation(string(OutcomeRaced), time.Millisecond)
	m.RecordReconciliation(string(OutcomeRaced), time.Millisecond)
	m.RecordCheckout("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `enrollment_reconciliations_total{outcome="raced"} 2`)
	assert.Contains(t, rec.Body.String(), `checkout_sessions_total{result="created"} 1`)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordWebhook("", "rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `result="rejected"`)
	assert.Contains(t, rec.Body.String(), `type="unknown"`)
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordWebhook("x", "accepted")
		m.RecordReconciliation("committed", time.Second)
		m.RecordCacheOperation(true, time.Second)
		m.RecordInvite("x", true)
		_ = m.Snapshot()
	})
}

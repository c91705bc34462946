package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("test")

	m.RecordRequest("/admin", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/admin", "GET", 200, 20*time.Millisecond)
	m.RecordGuardDecision("redirect_home")
	m.RecordVerification("approved")
	m.RecordCacheLookup("admin-stats", true)
	m.RecordCacheLookup("admin-stats", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/admin", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("redirect_home")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("admin-stats", "miss")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
		m.RecordGuardDecision("allow")
		m.RecordVerification("rejected")
		m.RecordCacheLookup("x", true)
	})
	assert.Nil(t, m.Registry())
}

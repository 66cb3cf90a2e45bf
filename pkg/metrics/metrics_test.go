package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordPhase(t *testing.T) {
	m := New(DefaultConfig("inbound-service"))

	m.RecordPhase("plan", "completed", time.Second)
	m.RecordPhase("plan", "completed", 2*time.Second)
	m.RecordPhase("plan", "failed", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PhaseExecutions.WithLabelValues("inbound-service", "plan", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhaseExecutions.WithLabelValues("inbound-service", "plan", "failed")))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPhase("plan", "completed", time.Second)
		m.RecordOperationPoll("success", time.Second)
		m.RecordRemoteCall("createInboundPlan", 202, time.Second)
		m.RecordSplit("confirmed")
		m.RecordLabelRequest(true)
		m.SetCircuitBreakerState("fulfillment-network", 2)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(DefaultConfig("inbound-service"))
	m.RecordOperationPoll("timeout", 30*time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wms_inbound_operation_polls_total")
}

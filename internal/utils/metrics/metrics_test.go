package metrics

import (
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New registers in the default registry, so every test uses its own
// namespace to keep fully-qualified metric names unique in one process.

func TestNew(t *testing.T) {
	m := New("newtest")

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.HTTPRequestsInFlight)
	assert.NotNil(t, m.GenerationsTotal)
	assert.NotNil(t, m.GenerationDuration)
	assert.NotNil(t, m.FailoversTotal)
	assert.NotNil(t, m.ProviderHealth)
	assert.NotNil(t, m.ModerationsRejected)
	assert.NotNil(t, m.CreditsSpentTotal)
	assert.NotNil(t, m.CreditsGrantedTotal)
	assert.NotNil(t, m.PaymentEventsTotal)
	assert.NotNil(t, m.QuotaRejectedTotal)
	assert.NotNil(t, m.ActiveSessions)
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := New("httpreqtest")

	t.Run("buckets status codes by class", func(t *testing.T) {
		m.RecordHTTPRequest("GET", "/api/v1/generations", 200, 100*time.Millisecond)
		m.RecordHTTPRequest("POST", "/api/v1/generations", 402, 50*time.Millisecond)
		m.RecordHTTPRequest("POST", "/api/v1/generations", 502, 200*time.Millisecond)

		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/generations", "2xx")))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/generations", "4xx")))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/generations", "5xx")))
	})
}

func TestMetrics_RecordGeneration(t *testing.T) {
	m := New("gentest")

	t.Run("counts by task type, provider and status", func(t *testing.T) {
		m.RecordGeneration("t2i", "piapi", "success", 2*time.Second)
		m.RecordGeneration("t2i", "piapi", "success", 3*time.Second)
		m.RecordGeneration("i2v", "pollo", "failed", 500*time.Millisecond)

		assert.Equal(t, float64(2), testutil.ToFloat64(
			m.GenerationsTotal.WithLabelValues("t2i", "piapi", "success")))
		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.GenerationsTotal.WithLabelValues("i2v", "pollo", "failed")))
	})

	t.Run("failover counter", func(t *testing.T) {
		m.RecordFailover("i2v")

		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.FailoversTotal.WithLabelValues("i2v")))
	})

	t.Run("moderation rejections", func(t *testing.T) {
		m.RecordModerationRejected()
		m.RecordModerationRejected()

		assert.Equal(t, float64(2), testutil.ToFloat64(m.ModerationsRejected))
	})
}

func TestMetrics_SetProviderHealth(t *testing.T) {
	m := New("healthtest")

	m.SetProviderHealth("piapi", true)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ProviderHealth.WithLabelValues("piapi")))

	m.SetProviderHealth("piapi", false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ProviderHealth.WithLabelValues("piapi")))
}

func TestMetrics_BillingCounters(t *testing.T) {
	m := New("billingtest")

	t.Run("credits spent", func(t *testing.T) {
		m.RecordCreditsSpent("t2v", 20)
		m.RecordCreditsSpent("t2v", 20)

		assert.Equal(t, float64(40), testutil.ToFloat64(
			m.CreditsSpentTotal.WithLabelValues("t2v")))
	})

	t.Run("non-positive amounts are ignored", func(t *testing.T) {
		m.RecordCreditsSpent("upscale", 0)
		m.RecordCreditsSpent("upscale", -5)
		m.RecordCreditsGranted("bonus", 0)

		assert.Equal(t, float64(0), testutil.ToFloat64(
			m.CreditsSpentTotal.WithLabelValues("upscale")))
		assert.Equal(t, float64(0), testutil.ToFloat64(
			m.CreditsGrantedTotal.WithLabelValues("bonus")))
	})

	t.Run("credits granted by bucket", func(t *testing.T) {
		m.RecordCreditsGranted("purchased", 500)

		assert.Equal(t, float64(500), testutil.ToFloat64(
			m.CreditsGrantedTotal.WithLabelValues("purchased")))
	})

	t.Run("payment events", func(t *testing.T) {
		m.RecordPaymentEvent("stripe", "succeeded")

		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.PaymentEventsTotal.WithLabelValues("stripe", "succeeded")))
	})

	t.Run("quota rejections by tier", func(t *testing.T) {
		m.RecordQuotaRejected("starter")

		assert.Equal(t, float64(1), testutil.ToFloat64(
			m.QuotaRejectedTotal.WithLabelValues("starter")))
	})
}

func TestMetrics_SetActiveSessions(t *testing.T) {
	m := New("sessiontest")

	m.SetActiveSessions(42)
	assert.Equal(t, float64(42), testutil.ToFloat64(m.ActiveSessions))

	m.SetActiveSessions(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.ActiveSessions))
}

// Components constructed without metrics pass a nil receiver; every
// method must be a no-op then, not a panic.
func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordGeneration("t2i", "piapi", "success", time.Second)
		m.RecordFailover("t2i")
		m.SetProviderHealth("piapi", true)
		m.RecordModerationRejected()
		m.RecordCreditsSpent("t2i", 10)
		m.RecordCreditsGranted("bonus", 10)
		m.RecordPaymentEvent("stripe", "succeeded")
		m.RecordQuotaRejected("starter")
		m.SetActiveSessions(1)
	})
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{299, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{422, "4xx"},
		{499, "4xx"},
		{500, "5xx"},
		{504, "5xx"},
		{100, "unknown"},
		{0, "unknown"},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, statusCodeToString(tt.code))
		})
	}
}

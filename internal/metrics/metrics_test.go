package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBroadcast(3, 1)
		m.SetOpenSessions(2)
		m.PriceUpdate("ok")
		m.OfferAccepted()
		m.OfferRejected("email")
		m.PersistFailed()
	})
}

func TestObserveBroadcast(t *testing.T) {
	m := New()
	m.ObserveBroadcast(3, 1)
	m.ObserveBroadcast(2, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.broadcasts))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.deliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedSessions))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.OfferAccepted()
	m.OfferRejected("amount")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "collectibles_offers_accepted_total 1")
	assert.Contains(t, string(body), `collectibles_offers_rejected_total{reason="amount"} 1`)
}

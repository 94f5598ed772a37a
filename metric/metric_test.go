package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	r := NewRegistry("library")

	r.ObserveRequest("addBook", false, 5*time.Millisecond)
	r.ObserveRequest("addBook", false, 7*time.Millisecond)
	r.ObserveRequest("addBook", true, 3*time.Millisecond)

	ok := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("addBook", "ok"))
	failed := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("addBook", "error"))
	assert.Equal(t, 2.0, ok)
	assert.Equal(t, 1.0, failed)
}

func TestSubscriptionGauge(t *testing.T) {
	r := NewRegistry("phonebook")

	r.SubscriptionsActive.Inc()
	r.SubscriptionsActive.Inc()
	r.SubscriptionsActive.Dec()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.SubscriptionsActive))
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry("library")
	r.ObserveRequest("bookCount", false, time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "graphbook_graphql_requests_total")
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorMiddlewareRecordsStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	handler := c.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpStatus.WithLabelValues("404")))
}

func TestCollectorCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry)

	c.RecordLoginSuccess("local")
	c.RecordLoginSuccess("google")
	c.RecordLoginFailure("local")
	c.RecordRegistration()
	c.RecordSecretUpdated()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.loginSuccess.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loginSuccess.WithLabelValues("google")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.loginFailure.WithLabelValues("local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.registrations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.secretsUpdated))
}

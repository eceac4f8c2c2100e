package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func serve(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	s := NewServer("0", nil, nil, nil)

	rec := serve(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RootMessage, rec.Body.String())

	rec = serve(t, s, http.MethodHead, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	stats := func() map[string]interface{} {
		return map[string]interface{}{"workers": 4, "queued": 0}
	}
	s := NewServer("0", nil, fakePinger{}, stats)

	rec := serve(t, s, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Contains(t, body, "workers")
}

func TestHealthz_DatabaseDown(t *testing.T) {
	s := NewServer("0", nil, fakePinger{err: errors.New("connection refused")}, nil)

	rec := serve(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "hamyon_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	s := NewServer("0", reg, nil, nil)

	rec := serve(t, s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hamyon_test_total 1"))
}

func TestMetrics_NotMountedWithoutGatherer(t *testing.T) {
	s := NewServer("0", nil, nil, nil)

	rec := serve(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := NewServer("0", nil, nil, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ayursense/internal/application/clocktest"
	"github.com/bryanwahyu/ayursense/internal/application/ingest"
	"github.com/bryanwahyu/ayursense/internal/domain/reading"
	"github.com/bryanwahyu/ayursense/internal/infra/cache"
	"github.com/bryanwahyu/ayursense/internal/middleware"
)

func get(t *testing.T, h http.Handler, path string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestReading_UnknownBeforeFirstSet(t *testing.T) {
	h := NewRouter(Options{Cache: cache.NewMemory(), Channel: reading.ChannelTDS})

	rec := get(t, h, "/api/tds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"tds":null}`, rec.Body.String())
}

func TestReading_DeviceLineToBridgeResponse(t *testing.T) {
	c := cache.NewMemory()
	svc := &ingest.Service{Cache: c, Channel: reading.ChannelTDS, Clock: clocktest.NewInstant(time.Unix(1, 0))}
	h := NewRouter(Options{Cache: c, Channel: reading.ChannelTDS})

	require.True(t, svc.HandleLine("TDS: 245.3 ppm\n"))
	assert.JSONEq(t, `{"tds":"245.3"}`, get(t, h, "/api/tds").Body.String())

	// a line without a number leaves the last value in place
	require.False(t, svc.HandleLine("no reading\n"))
	assert.JSONEq(t, `{"tds":"245.3"}`, get(t, h, "/api/tds").Body.String())
}

func TestReading_IntegerAndZeroFormatting(t *testing.T) {
	c := cache.NewMemory()
	h := NewRouter(Options{Cache: c, Channel: reading.ChannelTDS})

	c.Set(reading.ChannelTDS, 512, time.Unix(1, 0))
	assert.JSONEq(t, `{"tds":"512"}`, get(t, h, "/api/tds").Body.String())

	c.Set(reading.ChannelTDS, 0, time.Unix(2, 0))
	assert.JSONEq(t, `{"tds":"0"}`, get(t, h, "/api/tds").Body.String())
}

func TestReading_OtherChannelNotFound(t *testing.T) {
	h := NewRouter(Options{Cache: cache.NewMemory(), Channel: reading.ChannelTDS})
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/ph").Code)
}

func TestCORS(t *testing.T) {
	h := NewRouter(Options{Cache: cache.NewMemory(), Channel: reading.ChannelTDS})

	rec := get(t, h, "/api/tds", "Origin", "http://localhost:5173")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/tds", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, req)
	assert.Less(t, pre.Code, 300)
	assert.Equal(t, "*", pre.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth_DeviceFailureStillServesUnknown(t *testing.T) {
	h := NewRouter(Options{
		Cache:   cache.NewMemory(),
		Channel: reading.ChannelTDS,
		Checks: map[string]middleware.HealthChecker{
			"device": middleware.CheckerFunc(func(context.Context) error { return errors.New("device open failed: COM13") }),
		},
	})

	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "COM13")

	assert.JSONEq(t, `{"tds":null}`, get(t, h, "/api/tds").Body.String())
	assert.Equal(t, http.StatusOK, get(t, h, "/health/live").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/health/ready").Code)
}

func TestMetricsEndpointAndRateLimit(t *testing.T) {
	h := NewRouter(Options{
		Cache:   cache.NewMemory(),
		Channel: reading.ChannelTDS,
		Metrics: middleware.NewMetrics(prometheus.NewRegistry()),
		Limiter: middleware.NewRateLimiter(2, 0),
	})

	assert.Equal(t, http.StatusOK, get(t, h, "/api/tds").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/tds").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, h, "/api/tds").Code)

	rec := get(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := get(t, h, "/metrics")
	require.Equal(t, http.StatusTooManyRequests, body.Code, "metrics share the client bucket")
	assert.True(t, strings.HasPrefix(body.Header().Get("Retry-After"), "1"))
}

package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/threads", "GET", 200, 15*time.Millisecond)
	m.RecordRequest("/threads", "GET", 200, 5*time.Millisecond)
	m.RecordError("/threads/:id", "GET", "NOT_FOUND")
	m.RecordOperation("assign_ticket", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("/threads", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCount.WithLabelValues("/threads/:id", "GET", "NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationCount.WithLabelValues("assign_ticket", "ok")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordOperation("op", "ok")
	})
}

func TestRequestLoggerAndMetricsEndpoint(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestTracing())
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `helpdesk_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applogger "Moatline/pkg/logger"
)

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLimiterRefill(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(2, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(time.Hour)
	assert.Equal(t, 2, l.Prune(time.Minute))
}

func TestRateLimitOnlyUnderPrefix(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(NewLimiter(1, 0.0001), "/api/"))
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/api/v1/x", ok)
	e.GET("/health", ok)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/v1/x", nil).Code)
	rec := serve(e, http.MethodGet, "/api/v1/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/health", nil).Code)
	}
}

func TestCORS(t *testing.T) {
	e := echo.New()
	e.Use(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		MaxAge:       60,
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodGet, "/x", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, "https://app.example", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET, POST", rec.Header().Get(echo.HeaderAccessControlAllowMethods))

	rec = serve(e, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	rec = serve(e, http.MethodOptions, "/x", map[string]string{"Origin": "https://app.example"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "60", rec.Header().Get(echo.HeaderAccessControlMaxAge))
}

func TestRecoverLogsPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(Recover(applogger.NewWriter(&buf, "error")))
	e.GET("/boom", func(echo.Context) error { panic("kaput") })

	rec := serve(e, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "kaput")
	assert.Contains(t, buf.String(), "/boom")
}

func TestMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(RequestLogging(applogger.NewWriter(&buf, "debug"), 0))
	e.Use(m.Middleware())
	e.GET("/items/:id", func(c echo.Context) error { return c.String(http.StatusOK, "item") })
	e.GET("/fail", func(echo.Context) error { return errors.New("db down") })

	serve(e, http.MethodGet, "/items/1", nil)
	serve(e, http.MethodGet, "/items/2", nil)
	rec := serve(e, http.MethodGet, "/fail", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/items/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("/fail", "GET", "500")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "http request failed")
	assert.Contains(t, lines[2], `"status":500`)
}

func TestBodyLimit(t *testing.T) {
	e := echo.New()
	e.Use(BodyLimit(8))
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

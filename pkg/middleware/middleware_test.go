package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yeisme/filehost/pkg/configs"
	ctxPkg "github.com/yeisme/filehost/pkg/context"
	"github.com/yeisme/filehost/pkg/metrics"
	"github.com/yeisme/filehost/pkg/middleware"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	e := gin.New()
	e.Use(mw...)

	return e
}

func serve(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestRequestIDMiddleware(t *testing.T) {
	e := newEngine(middleware.RequestIDMiddleware())
	e.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, ctxPkg.GetRequestID(c.Request.Context()))
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/id", nil))

	id := rec.Header().Get(ctxPkg.RequestIDHeader)
	if len(id) != 26 {
		t.Fatalf("generated id %q, want a 26 char ULID", id)
	}

	if rec.Body.String() != id {
		t.Fatalf("context id %q != header id %q", rec.Body.String(), id)
	}

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(ctxPkg.RequestIDHeader, "upstream-123")

	rec = serve(e, req)
	if got := rec.Header().Get(ctxPkg.RequestIDHeader); got != "upstream-123" {
		t.Fatalf("incoming id not kept: %q", got)
	}
}

func TestGzipSkipsFileDownloads(t *testing.T) {
	e := newEngine(middleware.GzipMiddleware())
	e.GET("/files/:id", func(c *gin.Context) { c.String(http.StatusOK, "raw bytes") })

	req := httptest.NewRequest(http.MethodGet, "/files/abc", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rec := serve(e, req)
	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Fatalf("Content-Encoding = %q, want none", enc)
	}

	if rec.Body.String() != "raw bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRateLimitGlobal(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true, RPS: 0.001, Burst: 1, Key: "global",
	}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
}

func TestRateLimitUploadsSeparately(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true, RPS: 100, Burst: 100, Key: "ip", UploadRPS: 0.001, UploadBurst: 1,
	}))
	e.POST("/upload", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/files/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	if rec := serve(e, httptest.NewRequest(http.MethodPost, "/upload", nil)); rec.Code != http.StatusOK {
		t.Fatalf("first upload status = %d", rec.Code)
	}

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/upload", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second upload status = %d, want 429", rec.Code)
	}

	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}

	for range 3 {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, "/files/abc", nil)); rec.Code != http.StatusOK {
			t.Fatalf("download status = %d, downloads must not share the upload bucket", rec.Code)
		}
	}
}

func TestSchedulerMiddlewareNil(t *testing.T) {
	e := newEngine(middleware.SchedulerMiddleware(nil))
	e.GET("/", func(c *gin.Context) {
		if middleware.GetScheduler(c) != nil {
			t.Error("expected no scheduler")
		}

		c.Status(http.StatusNoContent)
	})

	serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRateLimitDisabled(t *testing.T) {
	e := newEngine(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false}))
	e.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for range 5 {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}

func TestPrometheusMiddlewareUsesRoutePattern(t *testing.T) {
	e := newEngine(middleware.PrometheusMiddleware())
	e.GET("/files/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.RequestCounter.WithLabelValues(http.MethodGet, "/files/:id", "200")
	before := testutil.ToFloat64(counter)

	serve(e, httptest.NewRequest(http.MethodGet, "/files/one", nil))
	serve(e, httptest.NewRequest(http.MethodGet, "/files/two", nil))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("counter delta = %v, want 2", got)
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	e := newEngine(middleware.CircuitBreakerMiddleware(configs.CircuitBreakerConfig{
		Enabled: true, FailureRate: 0.5, MinRequests: 2, TimeoutSeconds: 60, MaxRequestsInHalf: 1,
	}))
	e.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 2 {
		if rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil)); rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	}

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 while open", rec.Code)
	}

	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, health checks bypass the breaker", rec.Code)
	}
}

package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "prepx/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func newTracedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"))
	router.Use(SpanErrorAttributes())
	return router
}

func TestGinMiddleware_CreatesServerSpan(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestGinMiddleware_TraceHeadersPropagation(t *testing.T) {
	setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"has_traceparent": c.Request.Header.Get("traceparent") != ""})
	})

	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("traceparent", "00-12345678901234567890123456789012-1234567890123456-01")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_traceparent":true`)
}

func TestSpanErrorAttributes_RecordsAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/missing", func(c *gin.Context) {
		c.Set("user_id", 42)
		_ = c.Error(contextutils.ErrQuestionNotFound)
		c.JSON(http.StatusNotFound, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "QUESTION_NOT_FOUND", attrs["error.code"])
	assert.Equal(t, "info", attrs["error.severity"])
	assert.Equal(t, int64(42), attrs["error.user_id"])
}

func TestSpanErrorAttributes_ServerErrorWithoutAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestDetermineErrorSeverity(t *testing.T) {
	assert.Equal(t, "error", determineErrorSeverity(500, nil))
	assert.Equal(t, "warn", determineErrorSeverity(400, nil))
	assert.Equal(t, "info", determineErrorSeverity(200, nil))

	ginErrs := []*gin.Error{{Err: contextutils.ErrRateLimit}}
	assert.Equal(t, "warn", determineErrorSeverity(429, ginErrs))
}

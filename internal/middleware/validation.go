package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"prepx/internal/observability"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxLoggedBody = 200

// ResponseValidationMiddleware buffers every JSON response and checks it against the envelope
// schema for its route. A response that does not match is logged and replaced by a 500 envelope.
func ResponseValidationMiddleware(loader *SchemaLoader, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalWriter := c.Writer
		capture := &responseCaptureWriter{
			ResponseWriter: originalWriter,
			body:           &bytes.Buffer{},
		}
		c.Writer = capture

		c.Next()

		c.Writer = originalWriter
		status := capture.Status()

		if !strings.HasPrefix(originalWriter.Header().Get("Content-Type"), "application/json") || capture.body.Len() == 0 {
			flushCaptured(originalWriter, status, capture.body.Bytes())
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "response_validation")
		defer span.End()

		schemaName := loader.SchemaForResponse(c.Request.Method, c.FullPath(), status)
		span.SetAttributes(
			attribute.String("http.route", c.FullPath()),
			attribute.String("schema.name", schemaName),
		)

		if err := loader.ValidateJSON(capture.body.Bytes(), schemaName); err != nil {
			span.SetAttributes(attribute.Bool("schema.valid", false))
			body := capture.body.String()
			if len(body) > maxLoggedBody {
				body = body[:maxLoggedBody]
			}
			logger.Error(ctx, "Response validation failed", err, map[string]interface{}{
				"method":        c.Request.Method,
				"path":          c.Request.URL.Path,
				"schema_name":   schemaName,
				"response_data": body,
			})

			replacement, _ := json.Marshal(Envelope{
				Success:    false,
				StatusCode: http.StatusInternalServerError,
				Message:    "Internal server error",
				Code:       "RESPONSE_VALIDATION_FAILED",
			})
			flushCaptured(originalWriter, http.StatusInternalServerError, replacement)
			return
		}

		span.SetAttributes(attribute.Bool("schema.valid", true))
		flushCaptured(originalWriter, status, capture.body.Bytes())
	}
}

func flushCaptured(w gin.ResponseWriter, status int, body []byte) {
	if status > 0 {
		w.WriteHeader(status)
	}
	if len(body) == 0 {
		w.WriteHeaderNow()
		return
	}
	_, _ = w.Write(body)
}

// responseCaptureWriter keeps the body in memory until validation has run.
// The status is recorded on the wrapped writer, which does not send it before the first write.
type responseCaptureWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *responseCaptureWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseCaptureWriter) WriteHeaderNow() {}

func (w *responseCaptureWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *responseCaptureWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *responseCaptureWriter) Written() bool {
	return w.body.Len() > 0
}

func (w *responseCaptureWriter) Size() int {
	return w.body.Len()
}

func (w *responseCaptureWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return w.ResponseWriter.Status()
}

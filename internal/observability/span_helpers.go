package observability

import (
	"errors"

	contextutils "prepx/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// AppErrors at info or warn severity (not found, invalid input, rate limited)
// are caller mistakes: they are recorded as events but leave the span status unset.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()

	if errPtr == nil || *errPtr == nil {
		return
	}
	err := *errPtr

	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		span.SetAttributes(attribute.String("error.code", string(appErr.Code)))
		if appErr.Severity == contextutils.SeverityInfo || appErr.Severity == contextutils.SeverityWarn {
			span.RecordError(err)
			return
		}
	}
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}

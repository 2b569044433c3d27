package observability

import (
	"context"
	"errors"
	"testing"

	contextutils "prepx/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func finishWith(t *testing.T, err error) (codes.Code, map[attribute.Key]attribute.Value, int) {
	recorder := setupRecordingTracer(t)
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	FinishSpan(span, &err)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return ended[0].Status().Code, attrs, len(ended[0].Events())
}

func TestFinishSpan_NoError(t *testing.T) {
	status, attrs, events := finishWith(t, nil)
	assert.Equal(t, codes.Unset, status)
	assert.Empty(t, attrs)
	assert.Zero(t, events)
}

func TestFinishSpan_PlainError(t *testing.T) {
	status, attrs, events := finishWith(t, errors.New("connection reset"))
	assert.Equal(t, codes.Error, status)
	assert.NotContains(t, attrs, attribute.Key("error.code"))
	assert.Equal(t, 1, events)
}

func TestFinishSpan_ClientAppError(t *testing.T) {
	status, attrs, events := finishWith(t, contextutils.ErrQuestionNotFound)
	assert.Equal(t, codes.Unset, status)
	assert.Equal(t, string(contextutils.ErrorCodeQuestionNotFound), attrs["error.code"].AsString())
	assert.Equal(t, 1, events)
}

func TestFinishSpan_WrappedServerAppError(t *testing.T) {
	err := contextutils.WrapError(errors.New("deadlock detected"), "failed to record attempt")
	status, attrs, _ := finishWith(t, err)
	assert.Equal(t, codes.Error, status)
	assert.Equal(t, string(contextutils.GetErrorCode(err)), attrs["error.code"].AsString())
}

func TestFinishSpan_NilSpan(t *testing.T) {
	err := errors.New("ignored")
	assert.NotPanics(t, func() { FinishSpan(nil, &err) })
}

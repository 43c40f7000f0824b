package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewWithWriter_EmitsJSONWithServiceName(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("auth-service", "info", &buf)

	l.Info("server started", "port", 8001)

	out := logLine(t, &buf)
	assert.Equal(t, "auth-service", out["service"])
	assert.Equal(t, "server started", out["msg"])
	assert.Equal(t, float64(8001), out["port"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("auth-service", "warn", &buf)

	l.Info("should be dropped")
	assert.Zero(t, buf.Len())

	l.Warn("should appear")
	assert.NotZero(t, buf.Len())
}

func TestNewWithWriter_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("auth-service", "verbose", &buf)

	l.Debug("dropped at info level")
	assert.Zero(t, buf.Len())

	l.Info("kept")
	assert.NotZero(t, buf.Len())
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestUserID_RoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "usr-1")
	assert.Equal(t, "usr-1", UserIDFromContext(ctx))
	assert.Empty(t, UserIDFromContext(context.Background()))
}

func TestFromContext_ReturnsStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	stored := NewWithWriter("auth-service", "info", &buf)

	ctx := NewContext(context.Background(), stored)
	assert.Same(t, stored, FromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestWithContext_AddsCorrelationAndUserFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("auth-service", "info", &buf)

	ctx := WithCorrelationID(context.Background(), "corr-456")
	ctx = WithUserID(ctx, "usr-2")

	WithContext(ctx, base).Info("annotated")

	out := logLine(t, &buf)
	assert.Equal(t, "corr-456", out["correlation_id"])
	assert.Equal(t, "usr-2", out["user_id"])
}

func TestWithContext_NoFieldsOnEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("auth-service", "info", &buf)

	WithContext(context.Background(), base).Info("bare")

	out := logLine(t, &buf)
	_, hasCorr := out["correlation_id"]
	_, hasUser := out["user_id"]
	assert.False(t, hasCorr)
	assert.False(t, hasUser)
}

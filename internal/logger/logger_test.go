package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, fn func()) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	fn()

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestContextIDs(t *testing.T) {
	ctx := WithRunID(WithTraceID(context.Background(), "trace-1"), "run-1")

	assert.Equal(t, "trace-1", TraceIDFromContext(ctx))
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))
	assert.Empty(t, RunIDFromContext(context.Background()))
}

func TestInfoCtxf_AttachesIDs(t *testing.T) {
	ctx := WithRunID(WithTraceID(context.Background(), "trace-1"), "run-1")

	entry := captureJSON(t, func() {
		InfoCtxf(ctx, "Trained %d models", 2)
	})

	assert.Equal(t, "Trained 2 models", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "run-1", entry["run_id"])
}

func TestWithModel(t *testing.T) {
	entry := captureJSON(t, func() {
		WithModel("seasonal").Warn("slow fit")
	})

	assert.Equal(t, "seasonal", entry["model"])
	assert.Equal(t, "warning", entry["level"])
}

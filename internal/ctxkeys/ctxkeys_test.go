package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunID(t *testing.T) {
	_, ok := RunID(context.Background())
	assert.False(t, ok)

	_, ok = RunID(WithRunID(context.Background(), ""))
	assert.False(t, ok, "empty run id is treated as absent")

	id, ok := RunID(WithRunID(context.Background(), "run-1"))
	assert.True(t, ok)
	assert.Equal(t, "run-1", id)
}

func TestTraceID(t *testing.T) {
	ctx := WithTraceID(WithRunID(context.Background(), "run-1"), "abc")

	id, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	run, _ := RunID(ctx)
	assert.Equal(t, "run-1", run)
}

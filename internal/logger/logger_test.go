package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_With(t *testing.T) {
	b := new(bytes.Buffer)
	l, err := New(b, "info")
	assert.NoError(t, err)

	ctx := WithLogger(context.Background(), l)
	ctx = With(ctx, "target", "staging")

	Info(ctx, "run.start", "version", "main")
	Debug(ctx, "run.debug")

	out := b.String()
	assert.Contains(t, out, "lvl=info")
	assert.Contains(t, out, "msg=run.start")
	assert.Contains(t, out, "target=staging")
	assert.Contains(t, out, "version=main")
	assert.NotContains(t, out, "run.debug")
}

func TestLogger_NoLogger(t *testing.T) {
	ctx := context.Background()

	// Should not panic when no logger is embedded.
	Info(ctx, "nothing")
	assert.Equal(t, ctx, With(ctx, "key", "value"))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(new(bytes.Buffer), "loud")
	assert.Error(t, err)
}

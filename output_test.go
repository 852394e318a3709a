package deployhook

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/remind101/deployhook/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestOutputWriter(t *testing.T) {
	b := new(bytes.Buffer)
	l, err := logger.New(b, "info")
	assert.NoError(t, err)

	w := newOutputWriter(logger.WithLogger(context.Background(), l))
	w.Write([]byte("Pulling main\nBuil"))
	w.Write([]byte("ding\r\nno newline"))
	assert.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if assert.Len(t, lines, 3) {
		assert.Contains(t, lines[0], `line="Pulling main"`)
		assert.Contains(t, lines[1], `line=Building`)
		assert.Contains(t, lines[2], `line="no newline"`)
	}
	assert.Equal(t, "Pulling main\nBuilding\r\nno newline", w.Tail())
}

func TestOutputWriter_Tail(t *testing.T) {
	w := newOutputWriter(context.Background())
	w.Write(bytes.Repeat([]byte("a"), maxOutputTail))
	w.Write([]byte("bcd"))

	tail := w.Tail()
	assert.Len(t, tail, maxOutputTail)
	assert.True(t, strings.HasSuffix(tail, "abcd"))
}

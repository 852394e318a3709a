package deployhook

import (
	"bytes"
	"context"
	"sync"

	"github.com/remind101/deployhook/internal/logger"
)

// maxOutputTail is the number of bytes of deploy output kept for status.
const maxOutputTail = 4096

// outputWriter collects the output of a deploy action. Each complete line is
// logged, and the last maxOutputTail bytes are kept.
type outputWriter struct {
	ctx context.Context

	mu      sync.Mutex
	partial []byte
	tail    []byte
}

func newOutputWriter(ctx context.Context) *outputWriter {
	return &outputWriter{ctx: ctx}
}

func (w *outputWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tail = append(w.tail, p...)
	if n := len(w.tail) - maxOutputTail; n > 0 {
		w.tail = append(w.tail[:0], w.tail[n:]...)
	}

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.log(w.partial[:i])
		w.partial = w.partial[i+1:]
	}

	return len(p), nil
}

// Close logs any trailing output that didn't end with a newline.
func (w *outputWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.partial) > 0 {
		w.log(w.partial)
		w.partial = nil
	}
	return nil
}

// Tail returns the last bytes written.
func (w *outputWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.tail)
}

func (w *outputWriter) log(line []byte) {
	logger.Info(w.ctx, "deploy.output", "line", string(bytes.TrimRight(line, "\r")))
}

package executor

import (
	"bytes"
	"strings"
	"sync"
)

const defaultTailLines = 40

// maxLineBytes caps a single retained line so a child emitting gigabytes
// without a newline cannot grow the tail unbounded.
const maxLineBytes = 8192

// tailWriter keeps the last limit lines written through it. Writes are
// serialized; the writer is handed to both child streams.
type tailWriter struct {
	mu      sync.Mutex
	limit   int
	lines   []string
	partial []byte
}

func newTailWriter(limit int) *tailWriter {
	if limit < 1 {
		limit = defaultTailLines
	}
	return &tailWriter{limit: limit}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		w.push(string(w.partial[:i]))
		w.partial = w.partial[i+1:]
	}
	// An overlong unterminated line is flushed early to bound memory.
	if len(w.partial) > maxLineBytes {
		w.push(string(w.partial))
		w.partial = w.partial[:0]
	}
	return len(p), nil
}

func (w *tailWriter) push(line string) {
	line = strings.TrimSuffix(line, "\r")
	if len(w.lines) == w.limit {
		copy(w.lines, w.lines[1:])
		w.lines[len(w.lines)-1] = line
		return
	}
	w.lines = append(w.lines, line)
}

// Lines returns the retained tail, oldest first. A trailing unterminated
// line counts.
func (w *tailWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, len(w.lines), len(w.lines)+1)
	copy(out, w.lines)
	if len(w.partial) > 0 {
		out = append(out, strings.TrimSuffix(string(w.partial), "\r"))
		if len(out) > w.limit {
			out = out[len(out)-w.limit:]
		}
	}
	return out
}

package logger

import (
	"io"
	"sync"
)

// SyncWriter serializes writes from several producers sharing one output,
// such as the console logger and a progress indicator. Producers must emit
// each line with a single Write for lines to stay whole.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Unwrap returns the wrapped writer.
func (s *SyncWriter) Unwrap() io.Writer {
	return s.w
}

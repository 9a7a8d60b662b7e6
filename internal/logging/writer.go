package logging

import (
	"io"
	"sync"
)

// SyncWriter serializes writes to w. Everything that shares one stream, such
// as the log handler and an event encoder both writing stderr, must write
// through the same SyncWriter.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w. Wrapping a SyncWriter again returns it unchanged.
func NewSyncWriter(w io.Writer) *SyncWriter {
	if sw, ok := w.(*SyncWriter); ok {
		return sw
	}
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

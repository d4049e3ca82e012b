package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// captureFileMode is used when the capture file does not exist yet.
const captureFileMode = 0o644

// FileLogger records events into a capture file that sonos-log and Reader
// can read back. A listener and its renewal workers may share one.
type FileLogger struct {
	mu  sync.Mutex
	f   *os.File // nil once closed
	enc *cbor.Encoder
}

// NewFileLogger appends to the capture file at path, creating it if needed.
// Events from earlier sessions are kept.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, captureFileMode)
	if err != nil {
		return nil, err
	}
	return &FileLogger{f: f, enc: NewEncoder(f)}, nil
}

// Log appends event. An event that cannot be encoded is skipped; capture
// never fails the exchange being recorded.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return
	}
	_ = l.enc.Encode(event)
}

// Close flushes and closes the capture file. Events logged afterwards are
// discarded, and closing again returns nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	return f.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)

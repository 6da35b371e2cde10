package log

import (
	"bufio"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileSink appends events to a file as a buffered CBOR stream.
// It is safe for concurrent use. Write errors are sticky: after the
// first failure the sink stops writing rather than interleaving
// partial frames into the stream.
type FileSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *cbor.Encoder
	err    error
	closed bool
}

// NewFileSink opens (or creates) the event log at path for appending.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &FileSink{
		path: path,
		file: f,
		buf:  buf,
		enc:  newEventEncoder(buf),
	}, nil
}

// Log appends one event. Failures do not propagate; logging must never
// disrupt the connection tasks. Check Err to observe a broken sink.
func (s *FileSink) Log(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.err != nil {
		return
	}
	s.err = s.enc.Encode(event)
}

// Err returns the first write error, if any.
func (s *FileSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

// Close flushes buffered events and closes the file. Safe to call more
// than once; Log calls after Close are dropped.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.buf.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileSink)(nil)

package generation

import "sync"

// Stream is a finite sequence of generated text fragments. It is
// populated by a single producer goroutine and consumed with Next until
// exhaustion. A Stream is not restartable: once Next has returned false
// it returns false forever, and consuming one stream from multiple
// goroutines is not supported.
type Stream struct {
	ch chan string

	mu  sync.Mutex
	err error
}

func newStream() *Stream {
	return &Stream{ch: make(chan string)}
}

// Next blocks for the next fragment. It returns false once the stream
// is exhausted.
func (s *Stream) Next() (string, bool) {
	fragment, ok := <-s.ch
	return fragment, ok
}

// Err reports why the stream ended early. It is non-nil only when the
// stream was cut short by context cancellation or pool shutdown;
// generation failures never appear here because the producer degrades
// them into text fragments.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Stream) close() {
	close(s.ch)
}

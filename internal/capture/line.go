package capture

import (
	"bufio"
	"io"
	"sync"
)

// LineSource adapts a line-oriented stream of finalized transcripts (stdin,
// a pipe from an external recognizer) to the Source contract. Each line is
// one recognition result; EOF ends the run the way a real capture backend
// ends on silence. The stream position survives restarts, so a restarted
// run continues where the previous one stopped.
type LineSource struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	active  bool
	stopped bool
}

// NewLineSource creates a LineSource reading transcripts from r.
func NewLineSource(r io.Reader) *LineSource {
	if r == nil {
		return nil
	}
	return &LineSource{scanner: bufio.NewScanner(r)}
}

// Start begins one capture run on its own goroutine.
func (s *LineSource) Start(h Handler) error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.active = true
	s.stopped = false
	s.mu.Unlock()

	go s.run(h)
	return nil
}

// Stop requests the current run to end. A read blocked on the underlying
// stream finishes after its next line; results seen after Stop are dropped.
func (s *LineSource) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *LineSource) run(h Handler) {
	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		h.OnEnd()
	}()

	h.OnStart()

	for s.scanner.Scan() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		if line := s.scanner.Text(); line != "" {
			h.OnResult(line)
		}
	}
	if err := s.scanner.Err(); err != nil {
		h.OnError(err)
	}
}

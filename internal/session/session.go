// Package session runs the sender-side continuous listening loop. Capture
// backends die spontaneously and reject concurrent starts; the session wraps
// one behind guard flags and delayed restarts so the rest of the process
// sees an always-on service.
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/MicroPhone1/App-HelpPeople/internal/capture"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

const (
	// DefaultRestartDelay is how long after a capture run ends before the
	// next one starts.
	DefaultRestartDelay = 1000 * time.Millisecond

	// DefaultIndicatorTTL is how long a matched command stays displayed.
	DefaultIndicatorTTL = 3000 * time.Millisecond
)

// ErrTornDown is returned by Start after Close.
var ErrTornDown = errors.New("session: torn down")

// SubmitFunc receives one alert submission per matched trigger.
type SubmitFunc func(model.AlertSubmission)

// StatusSink receives user-visible session state. Implementations must not
// call back into the session; calls may arrive from timer goroutines.
type StatusSink interface {
	// ListeningChanged reports the liveness flag.
	ListeningChanged(listening bool)
	// StatusShown displays a transient indicator; empty string clears it.
	StatusShown(label string)
	// ErrorShown displays an error banner; empty string clears it.
	ErrorShown(msg string)
}

// Config configures a Session. Zero durations get the defaults; TimeNow
// defaults to the sender-local wall clock.
type Config struct {
	Triggers     []model.Trigger
	Submit       SubmitFunc
	Sink         StatusSink
	RestartDelay time.Duration
	IndicatorTTL time.Duration
	TimeNow      func() string
}

// Session owns one capture source across its many start/stop cycles.
type Session struct {
	src          capture.Source
	triggers     []model.Trigger
	submit       SubmitFunc
	sink         StatusSink
	restartDelay time.Duration
	indicatorTTL time.Duration
	timeNow      func() string

	mu             sync.Mutex
	recognizing    bool // a capture run is active or being started
	tornDown       bool
	restartTimer   *time.Timer
	indicatorTimer *time.Timer
}

// New creates a Session around src. The session does not start listening
// until Start is called.
func New(src capture.Source, cfg Config) *Session {
	s := &Session{
		src:          src,
		triggers:     cfg.Triggers,
		submit:       cfg.Submit,
		sink:         cfg.Sink,
		restartDelay: cfg.RestartDelay,
		indicatorTTL: cfg.IndicatorTTL,
		timeNow:      cfg.TimeNow,
	}
	if len(s.triggers) == 0 {
		s.triggers = DefaultTriggers()
	}
	if s.restartDelay <= 0 {
		s.restartDelay = DefaultRestartDelay
	}
	if s.indicatorTTL <= 0 {
		s.indicatorTTL = DefaultIndicatorTTL
	}
	if s.timeNow == nil {
		s.timeNow = func() string { return time.Now().Format("15:04:05") }
	}
	return s
}

// Start begins a capture run. Starting while a run is active or starting is
// a no-op; the underlying primitive rejects double starts and the guard
// keeps the session from ever hitting that.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return ErrTornDown
	}
	if s.recognizing {
		s.mu.Unlock()
		return nil
	}
	s.recognizing = true
	s.mu.Unlock()

	err := s.src.Start(s)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrAlreadyStarted):
		// A run is still winding down; the pending end will reschedule us.
		return nil
	case errors.Is(err, capture.ErrUnsupported):
		// Fatal for this session: surfaced once, no restart attempts.
		s.mu.Lock()
		s.recognizing = false
		s.tornDown = true
		s.errorShownLocked("voice capture is not supported on this device")
		s.mu.Unlock()
		return err
	default:
		s.mu.Lock()
		s.recognizing = false
		s.errorShownLocked(err.Error())
		s.scheduleRestartLocked()
		s.mu.Unlock()
		return err
	}
}

// Close tears the session down: stops the capture run, cancels pending
// timers and blocks any further restart.
func (s *Session) Close() {
	s.mu.Lock()
	s.tornDown = true
	s.recognizing = false
	if s.restartTimer != nil {
		s.restartTimer.Stop()
	}
	if s.indicatorTimer != nil {
		s.indicatorTimer.Stop()
	}
	s.mu.Unlock()

	s.src.Stop()
}

// ShowStatus displays a transient indicator that clears after ttl. A newer
// indicator restarts the clear timer, so an older one never wipes it early.
func (s *Session) ShowStatus(label string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.showStatusLocked(label, ttl)
}

// OnStart implements capture.Handler.
func (s *Session) OnStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognizing = true
	if s.tornDown {
		return
	}
	if s.sink != nil {
		s.sink.ListeningChanged(true)
	}
}

// OnResult implements capture.Handler. Every trigger contained in the
// finalized transcript emits one submission.
func (s *Session) OnResult(transcript string) {
	matched := Match(transcript, s.triggers)
	if len(matched) == 0 {
		return
	}

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	for _, t := range matched {
		s.showStatusLocked(t.Label, s.indicatorTTL)
	}
	s.mu.Unlock()

	for _, t := range matched {
		log.Printf("[session] matched %q -> %s", t.Keyword, t.Label)
		if s.submit != nil {
			s.submit(model.AlertSubmission{
				Message:    t.Label,
				Keyword:    t.Keyword,
				Time:       s.timeNow(),
				Transcript: transcript,
			})
		}
	}
}

// OnError implements capture.Handler. The run is stopped explicitly; the
// restart happens only through the normal end path, never inline here.
func (s *Session) OnError(err error) {
	s.mu.Lock()
	s.recognizing = false
	if !s.tornDown {
		s.errorShownLocked(err.Error())
	}
	s.mu.Unlock()

	s.src.Stop()
}

// OnEnd implements capture.Handler. Capture runs end spontaneously all the
// time; schedule the next one unless the session was torn down.
func (s *Session) OnEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognizing = false
	if s.tornDown {
		return
	}
	if s.sink != nil {
		s.sink.ListeningChanged(false)
	}
	s.scheduleRestartLocked()
}

func (s *Session) scheduleRestartLocked() {
	if s.restartTimer != nil {
		s.restartTimer.Stop()
	}
	s.restartTimer = time.AfterFunc(s.restartDelay, func() {
		// Start re-checks the guards: no-op if torn down or already live.
		s.Start()
	})
}

func (s *Session) showStatusLocked(label string, ttl time.Duration) {
	if s.sink != nil {
		s.sink.StatusShown(label)
	}
	if s.indicatorTimer != nil {
		s.indicatorTimer.Stop()
	}
	s.indicatorTimer = time.AfterFunc(ttl, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.tornDown {
			return
		}
		if s.sink != nil {
			s.sink.StatusShown("")
		}
	})
}

func (s *Session) errorShownLocked(msg string) {
	if s.sink != nil {
		s.sink.ErrorShown(msg)
	}
}

package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MicroPhone1/App-HelpPeople/internal/capture"
	"github.com/MicroPhone1/App-HelpPeople/internal/model"
)

// fakeSource mimics a capture primitive: rejects double starts, ends on
// Stop, and lets tests inject results, errors and spontaneous ends.
type fakeSource struct {
	mu      sync.Mutex
	handler capture.Handler
	active  bool
	starts  int
	stops   int
}

func (f *fakeSource) Start(h capture.Handler) error {
	f.mu.Lock()
	if f.active {
		f.mu.Unlock()
		return capture.ErrAlreadyStarted
	}
	f.active = true
	f.starts++
	f.handler = h
	f.mu.Unlock()

	h.OnStart()
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	wasActive := f.active
	f.active = false
	f.stops++
	h := f.handler
	f.mu.Unlock()

	if wasActive && h != nil {
		h.OnEnd()
	}
}

// result delivers a finalized transcript from the active run.
func (f *fakeSource) result(text string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h.OnResult(text)
}

// fail injects a mid-run capture error.
func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h.OnError(err)
}

// end simulates the source terminating spontaneously.
func (f *fakeSource) end() {
	f.mu.Lock()
	if !f.active {
		f.mu.Unlock()
		return
	}
	f.active = false
	h := f.handler
	f.mu.Unlock()
	h.OnEnd()
}

func (f *fakeSource) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *fakeSource) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type unsupportedSource struct{}

func (unsupportedSource) Start(capture.Handler) error { return capture.ErrUnsupported }
func (unsupportedSource) Stop()                       {}

// recordingSink captures every user-visible state change.
type recordingSink struct {
	mu        sync.Mutex
	listening []bool
	statuses  []string
	errors    []string
}

func (r *recordingSink) ListeningChanged(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = append(r.listening, v)
}

func (r *recordingSink) StatusShown(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, label)
}

func (r *recordingSink) ErrorShown(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingSink) lastListening() (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.listening) == 0 {
		return false, false
	}
	return r.listening[len(r.listening)-1], true
}

func (r *recordingSink) listeningOnCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.listening {
		if v {
			n++
		}
	}
	return n
}

func (r *recordingSink) statusSeen(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if s == label {
			return true
		}
	}
	return false
}

func (r *recordingSink) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

type submitRecorder struct {
	mu   sync.Mutex
	subs []model.AlertSubmission
}

func (r *submitRecorder) submit(s model.AlertSubmission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
}

func (r *submitRecorder) all() []model.AlertSubmission {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AlertSubmission, len(r.subs))
	copy(out, r.subs)
	return out
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestSession(src capture.Source, sink *recordingSink, rec *submitRecorder) *Session {
	return New(src, Config{
		Submit:       rec.submit,
		Sink:         sink,
		RestartDelay: 25 * time.Millisecond,
		IndicatorTTL: 25 * time.Millisecond,
	})
}

func TestLifecycleRestartsAfterEnd(t *testing.T) {
	src := &fakeSource{}
	sink := &recordingSink{}
	rec := &submitRecorder{}
	sess := newTestSession(src, sink, rec)
	defer sess.Close()

	if err := sess.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if v, ok := sink.lastListening(); !ok || !v {
		t.Fatal("liveness flag not set after start")
	}

	src.end()
	if v, _ := sink.lastListening(); v {
		t.Fatal("liveness flag still set after spontaneous end")
	}

	// The session must come back on its own after the restart delay.
	waitFor(t, func() bool { return src.startCount() == 2 }, "session did not restart after end")
	waitFor(t, func() bool { v, ok := sink.lastListening(); return ok && v }, "liveness flag not set after restart")
}

func TestStartWhileActiveIsNoOp(t *testing.T) {
	src := &fakeSource{}
	sess := newTestSession(src, &recordingSink{}, &submitRecorder{})
	defer sess.Close()

	if err := sess.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := sess.Start(); err != nil {
		t.Fatalf("second Start() = %v, want no-op", err)
	}
	if got := src.startCount(); got != 1 {
		t.Errorf("source started %d times, want 1", got)
	}
}

func TestEndOverlappingStartDoesNotDoubleStart(t *testing.T) {
	src := &fakeSource{}
	sink := &recordingSink{}
	sess := newTestSession(src, sink, &submitRecorder{})
	defer sess.Close()

	sess.Start()
	src.end()

	// A fresh start lands before the scheduled restart fires; the timer
	// must then see an active session and do nothing.
	sess.Start()
	time.Sleep(80 * time.Millisecond)

	if got := src.startCount(); got != 2 {
		t.Errorf("source started %d times, want 2 (one per logical cycle)", got)
	}
	if got := sink.listeningOnCount(); got != 2 {
		t.Errorf("liveness flag turned on %d times, want 2", got)
	}
}

func TestMultiKeywordUtteranceYieldsMultipleSubmissions(t *testing.T) {
	src := &fakeSource{}
	sink := &recordingSink{}
	rec := &submitRecorder{}
	sess := newTestSession(src, sink, rec)
	defer sess.Close()

	sess.Start()
	src.result("ขอน้ำกับข้าวหน่อย")

	subs := rec.all()
	if len(subs) != 2 {
		t.Fatalf("got %d submissions, want 2", len(subs))
	}
	if subs[0].Keyword != "น้ำ" || subs[0].Message != "ขอดื่มน้ำ" {
		t.Errorf("first submission = %q/%q, want น้ำ/ขอดื่มน้ำ", subs[0].Keyword, subs[0].Message)
	}
	if subs[1].Keyword != "ข้าว" || subs[1].Message != "ขออาหาร/หิวข้าว" {
		t.Errorf("second submission = %q/%q, want ข้าว/ขออาหาร/หิวข้าว", subs[1].Keyword, subs[1].Message)
	}
	for i, s := range subs {
		if s.Transcript != "ขอน้ำกับข้าวหน่อย" {
			t.Errorf("submission[%d].Transcript = %q, want original utterance", i, s.Transcript)
		}
		if s.Time == "" {
			t.Errorf("submission[%d].Time is empty", i)
		}
	}

	if !sink.statusSeen("ขอดื่มน้ำ") || !sink.statusSeen("ขออาหาร/หิวข้าว") {
		t.Error("matched commands not surfaced on the indicator")
	}
}

func TestIndicatorSelfClears(t *testing.T) {
	src := &fakeSource{}
	sink := &recordingSink{}
	sess := newTestSession(src, sink, &submitRecorder{})
	defer sess.Close()

	sess.Start()
	src.result("น้ำ")

	if !sink.statusSeen("ขอดื่มน้ำ") {
		t.Fatal("indicator not shown on match")
	}
	waitFor(t, func() bool { return sink.statusSeen("") }, "indicator did not self-clear")
}

func TestCaptureErrorStopsThenRestarts(t *testing.T) {
	src := &fakeSource{}
	sink := &recordingSink{}
	sess := newTestSession(src, sink, &submitRecorder{})
	defer sess.Close()

	sess.Start()
	src.fail(errors.New("no-speech"))

	if sink.errorCount() == 0 {
		t.Error("capture error not surfaced")
	}
	if src.stopCount() == 0 {
		t.Error("session did not stop the capture instance on error")
	}
	// No inline restart: recovery only through the end path, after the delay.
	waitFor(t, func() bool { return src.startCount() == 2 }, "session did not recover after capture error")
}

func TestCloseCancelsPendingRestart(t *testing.T) {
	src := &fakeSource{}
	sess := newTestSession(src, &recordingSink{}, &submitRecorder{})

	sess.Start()
	src.end()
	sess.Close()

	time.Sleep(80 * time.Millisecond)
	if got := src.startCount(); got != 1 {
		t.Errorf("source started %d times after teardown, want 1", got)
	}
	if err := sess.Start(); !errors.Is(err, ErrTornDown) {
		t.Errorf("Start() after Close = %v, want ErrTornDown", err)
	}
}

func TestUnsupportedCaptureIsFatalForSession(t *testing.T) {
	sink := &recordingSink{}
	sess := New(unsupportedSource{}, Config{Sink: sink})

	if err := sess.Start(); !errors.Is(err, capture.ErrUnsupported) {
		t.Fatalf("Start() = %v, want ErrUnsupported", err)
	}
	if sink.errorCount() != 1 {
		t.Errorf("error surfaced %d times, want once", sink.errorCount())
	}
	if err := sess.Start(); !errors.Is(err, ErrTornDown) {
		t.Errorf("Start() after unsupported = %v, want ErrTornDown", err)
	}
}

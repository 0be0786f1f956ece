// Package capture abstracts the continuous speech capture primitive feeding
// the sender session. Real capture backends end spontaneously (silence,
// timeouts, platform policy) and reject a second start while active; the
// session layer is built around exactly that contract.
package capture

import "errors"

var (
	// ErrAlreadyStarted is returned by Start while a capture run is active.
	ErrAlreadyStarted = errors.New("capture: already started")

	// ErrUnsupported means no capture backend is available on this host.
	ErrUnsupported = errors.New("capture: not supported on this platform")
)

// Handler receives capture lifecycle callbacks. Callbacks arrive from the
// source's own goroutine; OnEnd is always the last call of a run.
type Handler interface {
	// OnStart fires once the source is actively capturing.
	OnStart()
	// OnResult delivers one finalized recognition result.
	OnResult(transcript string)
	// OnError reports a mid-run failure. The run still terminates with OnEnd.
	OnError(err error)
	// OnEnd fires when a run terminates, spontaneously or via Stop.
	OnEnd()
}

// Source is a restartable capture primitive. Start begins one run and
// returns ErrAlreadyStarted if a run is in progress; Stop requests the
// current run to end.
type Source interface {
	Start(h Handler) error
	Stop()
}

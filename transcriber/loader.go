package transcriber

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LoadState int

const (
	StateUnloaded LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Loader owns the speech model lifecycle: unloaded until LoadAsync,
// then loading on a background goroutine, then ready or failed. A
// failed load stays failed until LoadAsync is called again; there is no
// automatic retry.
type Loader struct {
	factory BackendFactory
	log     zerolog.Logger

	// backendMu serializes construction and every backend invocation;
	// the model handle is not safe for concurrent use.
	backendMu sync.Mutex
	backend   Backend

	// stateMu guards the cheap state snapshot so IsReady never blocks
	// behind a running transcription.
	stateMu  sync.Mutex
	state    LoadState
	loadErr  error
	done     chan struct{}
	observer func(ok bool)
}

func NewLoader(factory BackendFactory, logger zerolog.Logger) *Loader {
	return &Loader{factory: factory, log: logger}
}

// SetObserver registers the readiness observer. It is invoked exactly
// once per load attempt, with the outcome.
func (l *Loader) SetObserver(fn func(ok bool)) {
	l.stateMu.Lock()
	l.observer = fn
	l.stateMu.Unlock()
}

// LoadAsync starts loading the model in the background. No-op while
// loading or once ready; a failed loader starts a fresh attempt.
func (l *Loader) LoadAsync() {
	l.stateMu.Lock()
	if l.state == StateLoading || l.state == StateReady {
		l.stateMu.Unlock()
		return
	}
	l.state = StateLoading
	l.loadErr = nil
	l.done = make(chan struct{})
	done := l.done
	l.stateMu.Unlock()

	go l.load(done)
}

func (l *Loader) load(done chan struct{}) {
	start := time.Now()

	l.backendMu.Lock()
	backend, err := l.factory()
	l.backendMu.Unlock()

	l.stateMu.Lock()
	if err != nil {
		l.state = StateFailed
		l.loadErr = err
		l.log.Error().Err(err).Msg("model load failed")
	} else {
		l.state = StateReady
		l.backend = backend
		l.log.Info().Dur("took", time.Since(start)).Msg("model loaded")
	}
	observer := l.observer
	close(done)
	l.stateMu.Unlock()

	if observer != nil {
		observer(err == nil)
	}
}

// WaitUntilReady blocks until the current load attempt finishes or the
// timeout elapses, then reports readiness. Returns immediately when no
// load is in flight.
func (l *Loader) WaitUntilReady(timeout time.Duration) bool {
	l.stateMu.Lock()
	state := l.state
	done := l.done
	l.stateMu.Unlock()

	if state != StateLoading {
		return state == StateReady
	}
	select {
	case <-done:
		return l.IsReady()
	case <-time.After(timeout):
		return false
	}
}

// IsReady is a non-blocking snapshot.
func (l *Loader) IsReady() bool {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state == StateReady
}

func (l *Loader) State() LoadState {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.state
}

// Err returns the error from the last failed load attempt.
func (l *Loader) Err() error {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.loadErr
}

// withBackend runs fn with the backend under the invocation mutex.
func (l *Loader) withBackend(fn func(Backend) error) error {
	l.backendMu.Lock()
	defer l.backendMu.Unlock()
	if l.backend == nil {
		return errors.New("backend not constructed")
	}
	return fn(l.backend)
}

// Close releases the backend if one was constructed.
func (l *Loader) Close() {
	l.backendMu.Lock()
	defer l.backendMu.Unlock()
	if l.backend != nil {
		if err := l.backend.Close(); err != nil {
			l.log.Warn().Err(err).Msg("closing backend")
		}
		l.backend = nil
	}
}

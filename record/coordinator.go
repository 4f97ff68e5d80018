package record

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blurt/audio"
	"blurt/transcriber"
)

// State is the coordinator's session lifecycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// CompleteFunc receives the outcome of one session. An empty text with
// a nil error means no speech was detected.
type CompleteFunc func(text string, err error)

// Coordinator serializes recording sessions: at most one session may be
// recording or processing at a time. Start and StopAndProcess are safe
// to call from any goroutine.
type Coordinator struct {
	recorder *audio.Recorder
	engine   *transcriber.Engine
	loader   *transcriber.Loader
	log      zerolog.Logger

	watcher *silenceWatcher

	// onUtterance, if set, sees the raw samples of every completed
	// recording before transcription. Used for the FLAC dump.
	onUtterance func(samples []float32)

	mu      sync.Mutex
	state   State
	session string
	stopVAD chan struct{}
}

func NewCoordinator(rec *audio.Recorder, eng *transcriber.Engine, loader *transcriber.Loader, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		recorder: rec,
		engine:   eng,
		loader:   loader,
		log:      logger,
	}
}

// EnableSilenceWarning arms a per-session voice activity check. onSilence
// fires at most once per session, after warnAfter of recording with no
// detected speech. It is advisory only and never stops the recording.
func (c *Coordinator) EnableSilenceWarning(sampleRate int, warnAfter time.Duration, onSilence func()) error {
	w, err := newSilenceWatcher(sampleRate, warnAfter, onSilence)
	if err != nil {
		return err
	}
	c.watcher = w
	c.recorder.SetFrameObserver(w.Feed)
	return nil
}

// SetUtteranceObserver installs a tap on completed recordings. Set
// before the first session.
func (c *Coordinator) SetUtteranceObserver(fn func(samples []float32)) {
	c.onUtterance = fn
}

// Start begins a new recording session. It fails without changing state
// when a session is already active, the model is not ready, or the
// capture device refuses to start.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return &transcriber.ProcessingError{Reason: "a session is already active"}
	}
	if !c.loader.IsReady() {
		return &transcriber.ProcessingError{Reason: "model not ready"}
	}
	if err := c.recorder.Start(); err != nil {
		return err
	}

	c.state = StateRecording
	c.session = uuid.NewString()
	if c.watcher != nil {
		c.watcher.Reset()
		c.stopVAD = make(chan struct{})
		go c.watcher.run(c.stopVAD)
	}
	c.log.Info().Str("session", c.session).Msg("recording started")
	return nil
}

// StopAndProcess ends the active recording and transcribes it in the
// background. onComplete is invoked exactly once; the coordinator
// returns to idle only after the callback has run. A stop with no
// session active is logged and ignored.
func (c *Coordinator) StopAndProcess(onComplete CompleteFunc) {
	c.mu.Lock()
	if c.state != StateRecording {
		st := c.state
		c.mu.Unlock()
		c.log.Debug().Stringer("state", st).Msg("stop ignored, no recording active")
		return
	}
	c.haltVADLocked()

	samples, err := c.recorder.Stop()
	session := c.session
	if err != nil {
		c.state = StateProcessing
		c.mu.Unlock()
		if errors.Is(err, audio.ErrNoAudio) {
			// Key tapped too fast for any audio to arrive. Not a failure.
			c.finishWith(session, "", nil, onComplete)
		} else {
			c.finishWith(session, "", err, onComplete)
		}
		return
	}

	c.state = StateProcessing
	c.mu.Unlock()
	c.log.Info().Str("session", session).Int("samples", len(samples)).Msg("recording stopped")

	go func() {
		if c.onUtterance != nil {
			c.onUtterance(samples)
		}
		text, terr := c.engine.Transcribe(samples)
		c.finishWith(session, text, terr, onComplete)
	}()
}

func (c *Coordinator) finishWith(session, text string, err error, onComplete CompleteFunc) {
	if err != nil {
		c.log.Error().Err(err).Str("session", session).Msg("session failed")
	} else {
		c.log.Info().Str("session", session).Msg("session complete")
	}
	if onComplete != nil {
		onComplete(text, err)
	}
	c.mu.Lock()
	c.state = StateIdle
	c.session = ""
	c.mu.Unlock()
}

// Abandon discards any active session without invoking a callback.
// Used on shutdown and when key bindings are swapped mid-recording.
func (c *Coordinator) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return
	}
	c.haltVADLocked()
	c.recorder.Abort()
	c.log.Info().Str("session", c.session).Msg("session abandoned")
	c.state = StateIdle
	c.session = ""
}

func (c *Coordinator) haltVADLocked() {
	if c.stopVAD != nil {
		close(c.stopVAD)
		c.stopVAD = nil
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) IsRecording() bool {
	return c.State() == StateRecording
}

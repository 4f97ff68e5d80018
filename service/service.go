// Package service ties the pieces together: it polls the hotkey
// monitor, gates recording on model readiness and window focus, and
// routes finished transcripts to the keystroke sink.
package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blurt/focus"
	"blurt/hotkey"
	"blurt/record"
	"blurt/sender"
	"blurt/transcriber"
)

// Callbacks surface service events to whatever front end is attached
// (TUI, log, tests). All fields are optional.
type Callbacks struct {
	Status           func(message string)
	ModelReady       func(ok bool)
	Transcript       func(text string) // final delivered text, for the transcript log
	RecordingStarted func()            // audible cue hooks
	RecordingStopped func()
}

// Config is the service's behavior knobs, already validated upstream.
type Config struct {
	Bindings         map[string]string // normalized key -> chat prefix
	AutoSend         bool
	PollInterval     time.Duration
	StatusResetDelay time.Duration
}

type Service struct {
	coord   *record.Coordinator
	loader  *transcriber.Loader
	monitor *hotkey.Monitor
	detect  focus.Detector
	sink    sender.Sink
	cb      Callbacks
	log     zerolog.Logger

	pollInterval     time.Duration
	statusResetDelay time.Duration

	mu           sync.Mutex
	running      bool
	autoSend     bool
	bindings     map[string]string
	activePrefix string
	stop         chan struct{}
	loopDone     chan struct{}
	resetTimer   *time.Timer
}

func New(coord *record.Coordinator, loader *transcriber.Loader, monitor *hotkey.Monitor,
	detect focus.Detector, sink sender.Sink, cfg Config, cb Callbacks, logger zerolog.Logger) *Service {

	bindings := make(map[string]string, len(cfg.Bindings))
	for k, prefix := range cfg.Bindings {
		bindings[hotkey.NormalizeKey(k)] = prefix
	}

	s := &Service{
		coord:            coord,
		loader:           loader,
		monitor:          monitor,
		detect:           detect,
		sink:             sink,
		cb:               cb,
		log:              logger,
		pollInterval:     cfg.PollInterval,
		statusResetDelay: cfg.StatusResetDelay,
		autoSend:         cfg.AutoSend,
		bindings:         bindings,
	}
	loader.SetObserver(s.onModelReady)
	s.status(fmt.Sprintf("Voice service initialized (%s)", s.sendMode()))
	return s
}

func (s *Service) sendMode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoSend {
		return "auto-send"
	}
	return "manual-send"
}

func (s *Service) status(message string) {
	if s.cb.Status != nil {
		s.cb.Status(message)
	}
	s.log.Info().Str("status", message).Msg("status")
}

// InitializeModel kicks off the background model load.
func (s *Service) InitializeModel() {
	s.status("Loading speech recognition model...")
	s.loader.LoadAsync()
}

func (s *Service) onModelReady(ok bool) {
	if ok {
		s.status(fmt.Sprintf("Model loaded successfully! Ready to start (%s)", s.sendMode()))
	} else {
		s.status("Failed to load speech recognition model")
	}
	if s.cb.ModelReady != nil {
		s.cb.ModelReady(ok)
	}
}

// Start begins hotkey polling. The model must be ready.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn().Msg("service already running")
		return nil
	}
	if !s.loader.IsReady() {
		s.mu.Unlock()
		s.status("Cannot start: speech recognition model not ready")
		return errors.New("speech recognition model not ready")
	}
	keys := s.keysLocked()
	s.mu.Unlock()

	if err := s.monitor.SetKeys(keys); err != nil {
		return err
	}

	s.mu.Lock()
	s.running = true
	s.stop = make(chan struct{})
	s.loopDone = make(chan struct{})
	stop, done := s.stop, s.loopDone
	s.mu.Unlock()

	go s.pollLoop(stop, done)
	s.status(fmt.Sprintf("Started (%s). Use configured hotkeys to record", s.sendMode()))
	s.log.Info().Interface("bindings", s.Bindings()).Msg("service started")
	return nil
}

func (s *Service) pollLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, ev := range s.monitor.Check() {
				if ev.Pressed {
					s.onPress(ev.Key)
				} else {
					s.onRelease(ev.Key)
				}
			}
		}
	}
}

func (s *Service) onPress(key string) {
	s.mu.Lock()
	prefix, bound := s.bindings[key]
	s.mu.Unlock()
	if !bound {
		return
	}
	if s.coord.IsRecording() {
		return
	}
	if !s.loader.IsReady() {
		s.status("Speech recognition model not ready")
		return
	}
	if !s.detect.TargetFocused() {
		s.status("Target application is not focused. Hold the key while in-game.")
		return
	}

	s.mu.Lock()
	s.activePrefix = prefix
	s.mu.Unlock()

	if err := s.coord.Start(); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to start recording")
		s.status("Recording error")
		return
	}
	if s.cb.RecordingStarted != nil {
		s.cb.RecordingStarted()
	}
	s.status(fmt.Sprintf("Recording with prefix '%s' (%s)...", prefix, s.sendMode()))
}

func (s *Service) onRelease(key string) {
	s.mu.Lock()
	prefix, bound := s.bindings[key]
	active := s.activePrefix
	s.mu.Unlock()
	if !bound {
		return
	}
	// Releasing a different bound key must not cut off the utterance.
	if !s.coord.IsRecording() || active != prefix {
		return
	}
	s.coord.StopAndProcess(s.onComplete)
	if s.cb.RecordingStopped != nil {
		s.cb.RecordingStopped()
	}
	s.status("Processing...")
}

func (s *Service) onComplete(text string, err error) {
	if !s.IsRunning() {
		// Stop raced the in-flight transcription. Drop the result.
		s.log.Debug().Msg("transcription finished after shutdown, discarded")
		return
	}
	defer s.scheduleStatusReset()

	if err != nil {
		s.log.Error().Err(err).Msg("transcription failed")
		s.status("Processing error")
		return
	}
	if text == "" {
		s.status("No speech detected")
		return
	}

	s.mu.Lock()
	prefix := s.activePrefix
	autoSend := s.autoSend
	s.mu.Unlock()

	message := text
	if prefix != "" {
		message = prefix + " " + text
	}

	if autoSend {
		s.status("Message recognized. Sending automatically")
	} else {
		s.status("Message recognized. Ready to be modified (press Enter to send)")
	}
	if err := s.sink.Deliver(message, autoSend); err != nil {
		s.log.Error().Err(err).Msg("failed to deliver message")
		s.status(fmt.Sprintf("Send error: %v", err))
		return
	}
	if s.cb.Transcript != nil {
		s.cb.Transcript(message)
	}
}

func (s *Service) scheduleStatusReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = time.AfterFunc(s.statusResetDelay, func() {
		if s.IsRunning() {
			s.status(fmt.Sprintf("Use hotkeys to speak (%s)", s.sendMode()))
		}
	})
}

// Stop ends polling, abandons any active recording, and waits briefly
// for the poll loop to exit. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.loopDone
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.log.Warn().Msg("poll loop did not exit in time")
	}

	s.coord.Abandon()
	s.status("Stopped")
}

// UpdateBindings swaps the key map. An active recording is abandoned
// rather than left holding a binding that no longer exists.
func (s *Service) UpdateBindings(bindings map[string]string) error {
	normalized := make(map[string]string, len(bindings))
	keys := make([]string, 0, len(bindings))
	for k, prefix := range bindings {
		nk := hotkey.NormalizeKey(k)
		normalized[nk] = prefix
		keys = append(keys, nk)
	}

	if s.coord.IsRecording() {
		s.coord.Abandon()
		s.log.Info().Msg("active recording abandoned for binding update")
	}
	if err := s.monitor.SetKeys(keys); err != nil {
		return err
	}

	s.mu.Lock()
	s.bindings = normalized
	s.activePrefix = ""
	s.mu.Unlock()
	s.log.Info().Interface("bindings", normalized).Msg("bindings updated")
	return nil
}

// SetAutoSend flips delivery mode for subsequent messages.
func (s *Service) SetAutoSend(autoSend bool) {
	s.mu.Lock()
	s.autoSend = autoSend
	s.mu.Unlock()
	s.log.Info().Str("mode", s.sendMode()).Msg("send mode changed")
}

func (s *Service) keysLocked() []string {
	keys := make([]string, 0, len(s.bindings))
	for k := range s.bindings {
		keys = append(keys, k)
	}
	return keys
}

// Bindings returns a copy of the current key map.
func (s *Service) Bindings() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.bindings))
	for k, v := range s.bindings {
		out[k] = v
	}
	return out
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) IsModelReady() bool { return s.loader.IsReady() }

func (s *Service) IsRecording() bool { return s.coord.IsRecording() }

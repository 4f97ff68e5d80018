package transcriber

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Engine performs one recognition call against the loader's model,
// waiting a bounded time for an in-flight load to finish.
type Engine struct {
	loader       *Loader
	readyTimeout time.Duration
	log          zerolog.Logger
}

func NewEngine(loader *Loader, readyTimeout time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{loader: loader, readyTimeout: readyTimeout, log: logger}
}

// Transcribe recognizes one utterance. An empty string result is the
// valid "no speech detected" outcome, not an error.
func (e *Engine) Transcribe(samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", &ProcessingError{Reason: "no audio data provided"}
	}

	switch e.loader.State() {
	case StateReady:
	case StateLoading:
		if !e.loader.WaitUntilReady(e.readyTimeout) {
			if err := e.loader.Err(); err != nil {
				return "", &ProcessingError{Reason: "model load failed", Err: err}
			}
			return "", &ProcessingError{Reason: fmt.Sprintf("model not ready after %s", e.readyTimeout)}
		}
	case StateFailed:
		return "", &ProcessingError{Reason: "model load failed", Err: e.loader.Err()}
	default:
		return "", &ProcessingError{Reason: "model not loaded"}
	}

	var segments []Segment
	start := time.Now()
	err := e.loader.withBackend(func(b Backend) error {
		var err error
		segments, err = b.Transcribe(samples)
		return err
	})
	if err != nil {
		return "", &ProcessingError{Reason: "transcription failed", Err: err}
	}

	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		e.log.Info().Dur("took", time.Since(start)).Msg("no speech detected")
		return "", nil
	}

	text = Normalize(text)
	e.log.Info().Dur("took", time.Since(start)).Int("samples", len(samples)).Msg("transcribed")
	return text, nil
}

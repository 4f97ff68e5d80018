// Package transcriber turns recorded samples into chat-ready text. It
// owns the speech model lifecycle (Loader), the recognition call
// (Engine), and the backend abstraction over the actual model.
package transcriber

import (
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"
)

// Segment is one recognized span of speech.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Backend is the speech model. Construction is expensive (hundreds of
// MB read from disk) and invocation is not thread-safe; the Loader
// serializes both behind one mutex.
type Backend interface {
	Transcribe(samples []float32) ([]Segment, error)
	Close() error
}

// BackendFactory constructs the backend. Called at most once per load
// attempt, on the loader's background goroutine.
type BackendFactory func() (Backend, error)

// ProcessingError reports a recognition failure: empty input, model not
// ready, or a backend error.
type ProcessingError struct {
	Reason string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("processing: %s: %v", e.Reason, e.Err)
	}
	return "processing: " + e.Reason
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Normalize formats recognized text for chat: first rune capitalized,
// terminal punctuation appended unless already present. Idempotent.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	r, size := utf8.DecodeRuneInString(text)
	text = string(unicode.ToUpper(r)) + text[size:]

	switch text[len(text)-1] {
	case '.', '!', '?':
	default:
		text += "."
	}
	return text
}

package transcriber

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func readyEngine(t *testing.T, backend Backend) *Engine {
	t.Helper()
	l := NewLoader((&FakeFactory{Backend: backend}).New, zerolog.Nop())
	l.LoadAsync()
	if !l.WaitUntilReady(time.Second) {
		t.Fatal("loader not ready")
	}
	return NewEngine(l, time.Second, zerolog.Nop())
}

func TestTranscribeEmptyInputFails(t *testing.T) {
	e := readyEngine(t, &FakeBackend{Text: "hello"})
	_, err := e.Transcribe(nil)
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeEmptyInputFailsBeforeLoad(t *testing.T) {
	l := NewLoader((&FakeFactory{Backend: &FakeBackend{}}).New, zerolog.Nop())
	e := NewEngine(l, time.Second, zerolog.Nop())
	var perr *ProcessingError
	if _, err := e.Transcribe(nil); !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeModelNeverLoaded(t *testing.T) {
	l := NewLoader((&FakeFactory{Backend: &FakeBackend{}}).New, zerolog.Nop())
	e := NewEngine(l, time.Second, zerolog.Nop())
	_, err := e.Transcribe([]float32{0.1})
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeWaitsForLoadingModel(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{Text: "hello world"}, Delay: 50 * time.Millisecond}
	l := NewLoader(factory.New, zerolog.Nop())
	e := NewEngine(l, time.Second, zerolog.Nop())

	l.LoadAsync()
	text, err := e.Transcribe([]float32{0.1, 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Hello world." {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeTimesOutOnSlowLoad(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{}, Delay: 500 * time.Millisecond}
	l := NewLoader(factory.New, zerolog.Nop())
	e := NewEngine(l, 20*time.Millisecond, zerolog.Nop())

	l.LoadAsync()
	_, err := e.Transcribe([]float32{0.1})
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeFailedModel(t *testing.T) {
	factory := &FakeFactory{ConstructErr: errors.New("bad model")}
	l := NewLoader(factory.New, zerolog.Nop())
	e := NewEngine(l, time.Second, zerolog.Nop())

	l.LoadAsync()
	l.WaitUntilReady(time.Second)
	_, err := e.Transcribe([]float32{0.1})
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeBackendError(t *testing.T) {
	e := readyEngine(t, &FakeBackend{Err: errors.New("inference blew up")})
	_, err := e.Transcribe([]float32{0.1})
	var perr *ProcessingError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}

func TestTranscribeNoSpeechIsNotAnError(t *testing.T) {
	e := readyEngine(t, &FakeBackend{Text: "   "})
	text, err := e.Transcribe([]float32{0.1})
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello world", "Hello world."},
		{"hello world!", "Hello world!"},
		{"already done?", "Already done?"},
		{"x", "X."},
		{"éclair time", "Éclair time."},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"hello world", "HELLO.", "a", "what now?"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent on %q: %q -> %q", in, once, twice)
		}
	}
}

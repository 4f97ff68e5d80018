package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"blurt/audio"
	"blurt/focus"
	"blurt/hotkey"
	"blurt/record"
	"blurt/sender"
	"blurt/transcriber"
)

type harness struct {
	svc      *Service
	loader   *transcriber.Loader
	provider *hotkey.FakeProvider
	detect   *focus.FakeDetector
	sink     *sender.FakeSink
	statuses chan string
}

type harnessOpts struct {
	samples  []float32
	backend  *transcriber.FakeBackend
	bindings map[string]string
	autoSend bool
	loadNow  bool
}

func newHarness(t *testing.T, opts harnessOpts) *harness {
	t.Helper()

	dev := &audio.FakeCapture{}
	if opts.samples != nil {
		ctx := audio.NewFakeContext(opts.samples)
		capture, err := ctx.NewCapture(nil, audio.CaptureConfig{})
		if err != nil {
			t.Fatal(err)
		}
		dev = capture.(*audio.FakeCapture)
	}
	rec := audio.NewRecorder(dev, zerolog.Nop())

	loader := transcriber.NewLoader((&transcriber.FakeFactory{Backend: opts.backend}).New, zerolog.Nop())
	engine := transcriber.NewEngine(loader, time.Second, zerolog.Nop())
	coord := record.NewCoordinator(rec, engine, loader, zerolog.Nop())

	provider := hotkey.NewFakeProvider()
	monitor := hotkey.NewMonitor(provider, zerolog.Nop())
	detect := focus.NewFakeDetector(true)
	sink := &sender.FakeSink{}

	statuses := make(chan string, 64)
	cb := Callbacks{
		Status: func(msg string) {
			select {
			case statuses <- msg:
			default:
			}
		},
	}

	svc := New(coord, loader, monitor, detect, sink, Config{
		Bindings:         opts.bindings,
		AutoSend:         opts.autoSend,
		PollInterval:     2 * time.Millisecond,
		StatusResetDelay: 40 * time.Millisecond,
	}, cb, zerolog.Nop())

	h := &harness{svc: svc, loader: loader, provider: provider, detect: detect, sink: sink, statuses: statuses}
	if opts.loadNow {
		svc.InitializeModel()
		if !loader.WaitUntilReady(time.Second) {
			t.Fatal("model never became ready")
		}
	}
	t.Cleanup(svc.Stop)
	return h
}

func (h *harness) waitStatus(t *testing.T, substr string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-h.statuses:
			if strings.Contains(msg, substr) {
				return
			}
		case <-deadline:
			t.Fatalf("status %q never appeared", substr)
		}
	}
}

func (h *harness) waitRecording(t *testing.T, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.svc.IsRecording() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("IsRecording never became %v", want)
}

func (h *harness) waitDelivery(t *testing.T) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d := h.sink.Deliveries(); len(d) > 0 {
			return d[len(d)-1]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("nothing delivered")
	return ""
}

func TestPressRecordReleaseDeliver(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 4096),
		backend:  &transcriber.FakeBackend{Text: "hello world"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}

	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)
	h.waitStatus(t, "Recording with prefix '!' (auto-send)")

	h.provider.SetPressed("A", false)
	h.waitStatus(t, "Processing...")

	if got := h.waitDelivery(t); got != "! Hello world." {
		t.Errorf("delivered %q", got)
	}
	h.waitStatus(t, "Message recognized. Sending automatically")
	h.waitRecording(t, false)
}

func TestEmptyPrefixDeliversBareText(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "open the door"},
		bindings: map[string]string{"L": ""},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("L", true)
	h.waitRecording(t, true)
	h.provider.SetPressed("L", false)
	if got := h.waitDelivery(t); got != "Open the door." {
		t.Errorf("delivered %q", got)
	}
}

func TestManualSendStatus(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "hi"},
		bindings: map[string]string{"G": "!"},
		autoSend: false,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("G", true)
	h.waitRecording(t, true)
	h.provider.SetPressed("G", false)
	h.waitDelivery(t)
	h.waitStatus(t, "Ready to be modified (press Enter to send)")
}

func TestUnfocusedTargetBlocksRecording(t *testing.T) {
	h := newHarness(t, harnessOpts{
		backend:  &transcriber.FakeBackend{Text: "x"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.detect.SetFocused(false)
	h.provider.SetPressed("A", true)
	h.waitStatus(t, "not focused")
	if h.svc.IsRecording() {
		t.Fatal("recording started without focus")
	}
}

func TestReleaseOfOtherBoundKeyKeepsRecording(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "keep going"},
		bindings: map[string]string{"A": "!", "B": "/pc"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}

	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)

	// A second bound key pressed and released mid-session is ignored.
	h.provider.SetPressed("B", true)
	time.Sleep(20 * time.Millisecond)
	h.provider.SetPressed("B", false)
	time.Sleep(20 * time.Millisecond)
	if !h.svc.IsRecording() {
		t.Fatal("other key's release ended the session")
	}

	h.provider.SetPressed("A", false)
	if got := h.waitDelivery(t); got != "! Keep going." {
		t.Errorf("delivered %q", got)
	}
}

func TestStartRequiresModelReady(t *testing.T) {
	h := newHarness(t, harnessOpts{
		backend:  &transcriber.FakeBackend{},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  false,
	})
	if err := h.svc.Start(); err == nil {
		t.Fatal("Start succeeded without a model")
	}
	h.waitStatus(t, "Cannot start")
	if h.svc.IsRunning() {
		t.Fatal("service running after rejected start")
	}
}

func TestNoSpeechDetected(t *testing.T) {
	// No samples arrive, so the session ends with empty audio.
	h := newHarness(t, harnessOpts{
		backend:  &transcriber.FakeBackend{Text: "ghost"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)
	h.provider.SetPressed("A", false)
	h.waitStatus(t, "No speech detected")
	if len(h.sink.Deliveries()) != 0 {
		t.Fatal("empty session delivered text")
	}
}

func TestDeliveryErrorSurfaces(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "hi"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	h.sink.Err = errors.New("clipboard unavailable")
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)
	h.provider.SetPressed("A", false)
	h.waitStatus(t, "Send error")
}

func TestStatusResetsAfterDelivery(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "hi"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)
	h.provider.SetPressed("A", false)
	h.waitDelivery(t)
	h.waitStatus(t, "Use hotkeys to speak (auto-send)")
}

func TestStopAbandonsActiveRecording(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "lost"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)

	h.svc.Stop()
	if h.svc.IsRunning() || h.svc.IsRecording() {
		t.Fatal("service did not stop cleanly")
	}
	time.Sleep(30 * time.Millisecond)
	if len(h.sink.Deliveries()) != 0 {
		t.Fatal("abandoned session delivered text")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, harnessOpts{
		backend:  &transcriber.FakeBackend{},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.svc.Stop()
	h.svc.Stop()
}

func TestUpdateBindingsAbandonsRecording(t *testing.T) {
	h := newHarness(t, harnessOpts{
		samples:  make([]float32, 2048),
		backend:  &transcriber.FakeBackend{Text: "x"},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	if err := h.svc.Start(); err != nil {
		t.Fatal(err)
	}
	h.provider.SetPressed("A", true)
	h.waitRecording(t, true)

	if err := h.svc.UpdateBindings(map[string]string{"c": "/pc"}); err != nil {
		t.Fatal(err)
	}
	h.waitRecording(t, false)
	h.provider.SetPressed("A", false)
	time.Sleep(20 * time.Millisecond)
	if len(h.sink.Deliveries()) != 0 {
		t.Fatal("stale release delivered text")
	}

	got := h.svc.Bindings()
	if got["C"] != "/pc" || len(got) != 1 {
		t.Fatalf("bindings = %v", got)
	}
}

func TestUpdateBindingsRejectsInvalidSet(t *testing.T) {
	h := newHarness(t, harnessOpts{
		backend:  &transcriber.FakeBackend{},
		bindings: map[string]string{"A": "!"},
		autoSend: true,
		loadNow:  true,
	})
	var cerr *hotkey.ConfigError
	if err := h.svc.UpdateBindings(map[string]string{"F12": "!"}); !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if got := h.svc.Bindings(); got["A"] != "!" {
		t.Fatalf("old bindings lost: %v", got)
	}
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"blurt/audio"
	"blurt/beep"
	"blurt/config"
	"blurt/focus"
	"blurt/hotkey"
	"blurt/log"
	"blurt/record"
	"blurt/service"
	"blurt/transcriber"
)

// stdoutSink prints deliveries instead of typing them, so test scripts
// can assert on output.
type stdoutSink struct{}

func (stdoutSink) Deliver(text string, autoSend bool) error {
	fmt.Printf("DELIVER: %s\n", text)
	return nil
}

// runTestMode replays a WAV file through a fake capture device and
// drives the hotkeys from stdin commands:
//
//	KEYDOWN <key> / KEYUP <key> / WAIT / SLEEP <ms> / QUIT
func runTestMode(wavPath string, cfg config.Config, files *log.Files) {
	beep.Disable()

	samples, err := loadWAV(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("LOADED: %d samples\n", len(samples))

	ctx := audio.NewFakeContext(samples)
	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	recorder := audio.NewRecorder(capture, files.Component("audio"))
	loader := transcriber.NewLoader(
		transcriber.WhisperFactory(cfg.ModelPath, cfg.Language),
		files.Component("loader"))
	defer loader.Close()
	engine := transcriber.NewEngine(loader, cfg.ReadyTimeout.Std(), files.Component("engine"))
	coord := record.NewCoordinator(recorder, engine, loader, files.Component("record"))

	provider := hotkey.NewFakeProvider()
	monitor := hotkey.NewMonitor(provider, files.Component("hotkey"))

	bindings := make(map[string]string, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		bindings[b.Key] = b.Prefix
	}

	svc := service.New(coord, loader, monitor, focus.NewFakeDetector(true), stdoutSink{},
		service.Config{
			Bindings:         bindings,
			AutoSend:         true,
			PollInterval:     cfg.PollInterval.Std(),
			StatusResetDelay: cfg.StatusResetDelay.Std(),
		},
		service.Callbacks{
			Status:     func(msg string) { fmt.Printf("STATUS: %s\n", msg) },
			Transcript: files.Transcript,
		},
		files.Component("service"))

	svc.InitializeModel()
	if !loader.WaitUntilReady(cfg.ReadyTimeout.Std()) {
		fmt.Fprintf(os.Stderr, "Error: model not ready: %v\n", loader.Err())
		os.Exit(1)
	}
	if err := svc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(cmd, "KEYDOWN "):
			provider.SetPressed(cmd[8:], true)
		case strings.HasPrefix(cmd, "KEYUP "):
			provider.SetPressed(cmd[6:], false)
		case cmd == "WAIT":
			waitSessionDone(coord)
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(cmd[6:]); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case cmd == "QUIT":
			svc.Stop()
			return
		}
	}
	svc.Stop()
}

// waitSessionDone blocks until the coordinator returns to idle, i.e.
// the last KEYUP has been fully processed and delivered.
func waitSessionDone(coord *record.Coordinator) {
	deadline := time.Now().Add(60 * time.Second)
	// Give the poll loop a moment to observe the release first.
	time.Sleep(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		if coord.State() == record.StateIdle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Fprintln(os.Stderr, "WAIT timed out")
}

// loadWAV decodes a mono or stereo PCM WAV into normalized float32
// samples. Stereo input is averaged down to mono.
func loadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%s contains no audio", path)
	}

	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = 16
	}
	scale := float32(int(1) << (bits - 1))

	channels := buf.Format.NumChannels
	if channels <= 1 {
		out := make([]float32, len(buf.Data))
		for i, s := range buf.Data {
			out[i] = float32(s) / scale
		}
		return out, nil
	}

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / scale
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

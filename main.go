package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"blurt/audio"
	"blurt/beep"
	"blurt/config"
	"blurt/doctor"
	"blurt/encoder"
	"blurt/focus"
	"blurt/hotkey"
	"blurt/log"
	"blurt/record"
	"blurt/sender"
	"blurt/service"
	"blurt/shutdown"
	"blurt/transcriber"
)

var version = "dev"

// Delay between the chat-open keystroke and the paste, so the target's
// input field has time to appear.
const keystrokeDelay = 150 * time.Millisecond

var (
	flagConfig   = flag.String("config", "", "path to YAML config file")
	flagModel    = flag.String("model", "", "path to ggml speech model (overrides config)")
	flagLanguage = flag.String("language", "", "speech language code (overrides config)")
	flagDevice   = flag.String("device", "", "capture device name substring")
	flagSetup    = flag.Bool("setup", false, "interactively pick the capture device")
	flagAutoSend = flag.Bool("autosend", true, "press enter after pasting the message")
	flagQuiet    = flag.Bool("quiet", false, "disable audible recording cues")
	flagDump     = flag.String("dump", "", "directory to write each utterance as FLAC")
	flagTUI      = flag.Bool("tui", false, "show the terminal status UI")
	flagDoctor   = flag.Bool("doctor", false, "run system diagnostics and exit")
	flagTest     = flag.String("test", "", "test mode: replay this WAV file, drive keys via stdin")
	flagLogPath  = flag.String("logpath", "", "directory for log files")
	flagVersion  = flag.Bool("version", false, "print version and exit")
)

func run() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("blurt %s\n", version)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *flagDoctor {
		os.Exit(doctor.Run(cfg.ModelPath, cfg.SampleRate))
	}

	logDir, err := log.ResolveDir(*flagLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: resolving log directory: %v\n", err)
		os.Exit(1)
	}
	files, err := log.Open(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening logs: %v\n", err)
		os.Exit(1)
	}
	defer files.Close()
	files.Component("main").Info().Str("version", version).Msg("starting")

	if *flagQuiet {
		beep.Disable()
	}

	if *flagTest != "" {
		runTestMode(*flagTest, cfg, files)
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: audio backend: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	device, err := pickDevice(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening capture device: %v\n", err)
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

	if *flagDump != "" {
		wireDump(coord, *flagDump, cfg.SampleRate, files)
	}

	provider := hotkey.NewProvider(files.Component("hotkey"))
	monitor := hotkey.NewMonitor(provider, files.Component("hotkey"))
	defer monitor.Close()

	// The flag wins only when the user actually passed it.
	autoSend := cfg.AutoSend
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "autosend" {
			autoSend = *flagAutoSend
		}
	})

	detector := focus.NewDetector(cfg.TargetProcesses, files.Component("focus"))
	sink, err := sender.NewKeyboardSink(cfg.ChatKey, keystrokeDelay, files.Component("sender"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bindings := make(map[string]string, len(cfg.Bindings))
	for _, b := range cfg.Bindings {
		bindings[b.Key] = b.Prefix
	}

	var ui *statusUI
	if *flagTUI {
		ui = newStatusUI(bindings)
	}
	status := func(msg string) {
		if ui != nil {
			ui.SetStatus(msg)
		} else {
			fmt.Println(msg)
		}
	}

	svc := service.New(coord, loader, monitor, detector, sink, service.Config{
		Bindings:         bindings,
		AutoSend:         autoSend,
		PollInterval:     cfg.PollInterval.Std(),
		StatusResetDelay: cfg.StatusResetDelay.Std(),
	}, service.Callbacks{
		Status:           status,
		Transcript:       files.Transcript,
		RecordingStarted: beep.PlayStart,
		RecordingStopped: beep.PlayEnd,
	}, files.Component("service"))

	if err := coord.EnableSilenceWarning(cfg.SampleRate, cfg.SilenceWarnAfter.Std(), func() {
		beep.PlayError()
		status("Still listening... no speech detected yet")
	}); err != nil {
		files.Component("record").Warn().Err(err).Msg("silence warning unavailable")
	}

	svc.InitializeModel()
	if !loader.WaitUntilReady(cfg.ReadyTimeout.Std()) {
		fmt.Fprintf(os.Stderr, "Error: model not ready after %s", cfg.ReadyTimeout.Std())
		if err := loader.Err(); err != nil {
			fmt.Fprintf(os.Stderr, ": %v", err)
		}
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}

	if err := svc.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Stop()

	if ui != nil {
		// The TUI owns the terminal until the user quits it.
		if err := ui.Run(); err != nil {
			files.Component("main").Error().Err(err).Msg("tui exited")
		}
		return
	}

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	<-sig
	fmt.Println()
}

func loadConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	switch {
	case *flagConfig != "":
		cfg, err = config.Load(*flagConfig)
	default:
		// A blurt.yaml next to the binary is picked up when present.
		if _, statErr := os.Stat("blurt.yaml"); statErr == nil {
			cfg, err = config.Load("blurt.yaml")
		} else {
			cfg = config.Default()
		}
	}
	if err != nil {
		return cfg, err
	}

	if *flagModel != "" {
		cfg.ModelPath = *flagModel
	}
	if *flagLanguage != "" {
		cfg.Language = *flagLanguage
	}
	return cfg, nil
}

func pickDevice(ctx audio.Context) (*audio.DeviceInfo, error) {
	if *flagSetup {
		return selectDevice(ctx)
	}
	if *flagDevice != "" {
		return findDevice(ctx, *flagDevice)
	}
	return nil, nil // system default
}

func wireDump(coord *record.Coordinator, dir string, sampleRate int, files *log.Files) {
	logger := files.Component("dump")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Msg("cannot create dump directory")
		return
	}
	coord.SetUtteranceObserver(func(samples []float32) {
		name := fmt.Sprintf("utterance-%s.flac", time.Now().Format("20060102-150405.000"))
		path := filepath.Join(dir, name)
		if err := encoder.DumpFile(path, samples, sampleRate); err != nil {
			logger.Error().Err(err).Msg("flac dump failed")
			return
		}
		logger.Info().Str("path", path).Int("samples", len(samples)).Msg("utterance dumped")
	})
}

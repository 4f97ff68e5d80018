// Package log owns the on-disk log files and hands out zerolog loggers.
// Components receive their logger at construction; nothing in the domain
// packages reaches for a package-level logger.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Files bundles the diagnostics log and the transcript log for one run.
type Files struct {
	mu         sync.Mutex
	dir        string
	diag       *os.File
	transcript *os.File
	root       zerolog.Logger
	pid        int
}

// ResolveDir picks the log directory: flag value, then BLURT_LOG_PATH,
// then the OS-specific default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath == "" {
		flagPath = os.Getenv("BLURT_LOG_PATH")
	}
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}
	return getDefaultDir()
}

// Open creates the log directory and both log files.
func Open(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	diag, err := os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	transcript, err := os.OpenFile(filepath.Join(dir, "transcribe_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diag.Close()
		return nil, err
	}

	f := &Files{
		dir:        dir,
		diag:       diag,
		transcript: transcript,
		pid:        os.Getpid(),
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        diag,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	f.root = zerolog.New(consoleWriter).With().Timestamp().Int("pid", f.pid).Logger()
	return f, nil
}

func (f *Files) Dir() string { return f.dir }

// Component returns a logger tagged with the component name.
func (f *Files) Component(name string) zerolog.Logger {
	return f.root.With().Str("component", name).Logger()
}

// Transcript appends one recognized utterance to the transcript file.
func (f *Files) Transcript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcript == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), f.pid, text)
	f.transcript.WriteString(line)
}

func (f *Files) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.diag != nil {
		f.diag.Close()
		f.diag = nil
	}
	if f.transcript != nil {
		f.transcript.Close()
		f.transcript = nil
	}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

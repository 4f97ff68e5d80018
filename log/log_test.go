package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(wd, "logs")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("BLURT_LOG_PATH", "/tmp/blurt-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/blurt-env-log" {
		t.Errorf("got %q, want /tmp/blurt-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("BLURT_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("default dir is empty")
	}
	if !strings.Contains(got, "blurt") {
		t.Errorf("default dir %q does not mention blurt", got)
	}
}

func TestOpenWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	logger := f.Component("test")
	logger.Info().Msg("hello")
	f.Transcript("Hello world.")
	f.Close()

	diag, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(diag), "hello") {
		t.Errorf("diagnostics log missing entry: %q", diag)
	}
	if !strings.Contains(string(diag), "component=test") {
		t.Errorf("diagnostics log missing component field: %q", diag)
	}

	tr, err := os.ReadFile(filepath.Join(dir, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(tr), "Hello world.") {
		t.Errorf("transcript log missing text: %q", tr)
	}
}

func TestTranscriptAfterCloseIsNoop(t *testing.T) {
	f, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	f.Transcript("late") // must not panic
}

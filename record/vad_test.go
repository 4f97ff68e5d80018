package record

import (
	"testing"
	"time"
)

func TestSilenceWatcherWarnsOncePerSession(t *testing.T) {
	fired := 0
	w, err := newSilenceWatcher(16000, 10*time.Millisecond, func() { fired++ })
	if err != nil {
		t.Fatal(err)
	}
	w.Reset()

	// A second of dead air.
	w.Feed(make([]float32, 16000))
	time.Sleep(20 * time.Millisecond)

	if !w.check() {
		t.Fatal("no warning after silent session passed the threshold")
	}
	if w.check() {
		t.Fatal("warning fired twice in one session")
	}
	if fired != 1 {
		t.Fatalf("callback ran %d times", fired)
	}

	// A new session warns again.
	w.Reset()
	w.Feed(make([]float32, 16000))
	time.Sleep(20 * time.Millisecond)
	if !w.check() {
		t.Fatal("no warning after reset")
	}
	if fired != 2 {
		t.Fatalf("callback ran %d times", fired)
	}
}

func TestSilenceWatcherHoldsBeforeThreshold(t *testing.T) {
	w, err := newSilenceWatcher(16000, time.Hour, func() { t.Fatal("warned early") })
	if err != nil {
		t.Fatal(err)
	}
	w.Reset()
	w.Feed(make([]float32, 16000))
	if w.check() {
		t.Fatal("check fired before warnAfter elapsed")
	}
}

package transcriber

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadAsyncReachesReady(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{Text: "hi"}}
	l := NewLoader(factory.New, zerolog.Nop())

	if l.State() != StateUnloaded {
		t.Fatalf("initial state = %s", l.State())
	}
	l.LoadAsync()
	if !l.WaitUntilReady(time.Second) {
		t.Fatal("loader did not become ready")
	}
	if l.State() != StateReady {
		t.Fatalf("state = %s, want ready", l.State())
	}
}

func TestConcurrentLoadAsyncConstructsOnce(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{}, Delay: 20 * time.Millisecond}
	l := NewLoader(factory.New, zerolog.Nop())

	var notifications int
	var mu sync.Mutex
	l.SetObserver(func(ok bool) {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LoadAsync()
		}()
	}
	wg.Wait()

	if !l.WaitUntilReady(time.Second) {
		t.Fatal("loader did not become ready")
	}
	time.Sleep(20 * time.Millisecond) // let the observer run

	if got := factory.Builds(); got != 1 {
		t.Errorf("factory ran %d times, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if notifications != 1 {
		t.Errorf("observer fired %d times, want 1", notifications)
	}
}

func TestLoadFailureIsTerminalUntilRetry(t *testing.T) {
	boom := errors.New("model file corrupt")
	factory := &FakeFactory{ConstructErr: boom}
	l := NewLoader(factory.New, zerolog.Nop())

	outcome := make(chan bool, 2)
	l.SetObserver(func(ok bool) { outcome <- ok })

	l.LoadAsync()
	select {
	case ok := <-outcome:
		if ok {
			t.Fatal("observer reported success for failed load")
		}
	case <-time.After(time.Second):
		t.Fatal("observer never fired")
	}
	if l.State() != StateFailed {
		t.Fatalf("state = %s, want failed", l.State())
	}
	if !errors.Is(l.Err(), boom) {
		t.Fatalf("Err() = %v", l.Err())
	}

	// No auto-retry: state stays failed until an explicit LoadAsync.
	factory.ConstructErr = nil
	factory.Backend = &FakeBackend{}
	if l.IsReady() {
		t.Fatal("loader became ready without a retry")
	}

	l.LoadAsync()
	select {
	case ok := <-outcome:
		if !ok {
			t.Fatal("retry failed")
		}
	case <-time.After(time.Second):
		t.Fatal("observer never fired on retry")
	}
	if !l.IsReady() {
		t.Fatal("loader not ready after retry")
	}
}

func TestWaitUntilReadyTimesOut(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{}, Delay: 200 * time.Millisecond}
	l := NewLoader(factory.New, zerolog.Nop())
	l.LoadAsync()

	start := time.Now()
	if l.WaitUntilReady(20 * time.Millisecond) {
		t.Fatal("wait reported ready during slow load")
	}
	if time.Since(start) > 150*time.Millisecond {
		t.Fatal("wait did not respect timeout")
	}
	if !l.WaitUntilReady(time.Second) {
		t.Fatal("loader never became ready")
	}
}

func TestWaitUntilReadyWithoutLoadReturnsImmediately(t *testing.T) {
	l := NewLoader((&FakeFactory{Backend: &FakeBackend{}}).New, zerolog.Nop())
	start := time.Now()
	if l.WaitUntilReady(time.Second) {
		t.Fatal("unloaded loader reported ready")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("wait blocked with no load in flight")
	}
}

func TestLoadAsyncIdempotentWhenReady(t *testing.T) {
	factory := &FakeFactory{Backend: &FakeBackend{}}
	l := NewLoader(factory.New, zerolog.Nop())
	l.LoadAsync()
	if !l.WaitUntilReady(time.Second) {
		t.Fatal("not ready")
	}
	l.LoadAsync()
	time.Sleep(10 * time.Millisecond)
	if got := factory.Builds(); got != 1 {
		t.Errorf("factory ran %d times, want 1", got)
	}
}

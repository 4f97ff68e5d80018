package transcriber

import (
	"sync"
	"time"
)

// FakeBackend returns canned segments. Used by tests and -test mode.
type FakeBackend struct {
	Text  string
	Err   error
	Delay time.Duration

	mu    sync.Mutex
	calls int
}

func (f *FakeBackend) Transcribe(samples []float32) ([]Segment, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Text == "" {
		return nil, nil
	}
	return []Segment{{Text: f.Text}}, nil
}

func (f *FakeBackend) Close() error { return nil }

func (f *FakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakeFactory wraps a backend in a factory that counts constructions
// and can simulate slow or failing loads.
type FakeFactory struct {
	Backend      Backend
	ConstructErr error
	Delay        time.Duration

	mu     sync.Mutex
	builds int
}

func (f *FakeFactory) New() (Backend, error) {
	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	f.mu.Lock()
	f.builds++
	f.mu.Unlock()
	if f.ConstructErr != nil {
		return nil, f.ConstructErr
	}
	return f.Backend, nil
}

func (f *FakeFactory) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

package audio

import "sync"

const fakeChunkSize = 1024

// FakeContext serves canned samples instead of a real microphone.
// Used by tests and by -test mode.
type FakeContext struct {
	samples []float32
}

func NewFakeContext(samples []float32) *FakeContext {
	return &FakeContext{samples: samples}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{samples: f.samples}, nil
}

func (f *FakeContext) Close() {}

// FakeCapture replays its samples through the callback as soon as the
// stream starts, chunked the way a real device would deliver them.
type FakeCapture struct {
	samples  []float32
	StartErr error // returned by Start when set

	mu      sync.Mutex
	cb      DataCallback
	started bool
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) Start() error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.mu.Lock()
	f.started = true
	cb := f.cb
	f.mu.Unlock()

	if cb == nil {
		return nil
	}
	for pos := 0; pos < len(f.samples); pos += fakeChunkSize {
		end := min(pos+fakeChunkSize, len(f.samples))
		chunk := make([]float32, end-pos)
		copy(chunk, f.samples[pos:end])
		cb(chunk)
	}
	return nil
}

// Feed pushes an extra chunk through the callback, as if the device
// produced more audio while the stream is open.
func (f *FakeCapture) Feed(samples []float32) {
	f.mu.Lock()
	cb := f.cb
	started := f.started
	f.mu.Unlock()
	if started && cb != nil {
		cb(samples)
	}
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {}

func (f *FakeCapture) DeviceName() string { return "fake" }

package focus

import "sync"

// FakeDetector is a scriptable focus gate for tests.
type FakeDetector struct {
	mu      sync.Mutex
	focused bool
}

func NewFakeDetector(focused bool) *FakeDetector {
	return &FakeDetector{focused: focused}
}

func (f *FakeDetector) TargetFocused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused
}

func (f *FakeDetector) SetFocused(v bool) {
	f.mu.Lock()
	f.focused = v
	f.mu.Unlock()
}

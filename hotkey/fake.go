package hotkey

import "sync"

// FakeProvider lets tests script key state directly.
type FakeProvider struct {
	WatchErr error // returned by Watch when set

	mu      sync.Mutex
	watched []string
	pressed map[string]bool
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{pressed: make(map[string]bool)}
}

func (f *FakeProvider) Watch(keys []string) error {
	if f.WatchErr != nil {
		return f.WatchErr
	}
	f.mu.Lock()
	f.watched = append([]string(nil), keys...)
	f.mu.Unlock()
	return nil
}

func (f *FakeProvider) IsPressed(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pressed[key]
}

func (f *FakeProvider) Close() {}

// SetPressed flips one key's state, as if the user pressed or released it.
func (f *FakeProvider) SetPressed(key string, down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if down {
		f.pressed[NormalizeKey(key)] = true
	} else {
		delete(f.pressed, NormalizeKey(key))
	}
}

// Watched returns the keys from the last Watch call.
func (f *FakeProvider) Watched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.watched...)
}

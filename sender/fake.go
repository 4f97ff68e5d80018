package sender

import "sync"

// FakeSink records delivered texts for assertions.
type FakeSink struct {
	Err error // returned by Deliver when set

	mu         sync.Mutex
	deliveries []string
}

func (f *FakeSink) Deliver(text string, autoSend bool) error {
	if f.Err != nil {
		return f.Err
	}
	f.mu.Lock()
	f.deliveries = append(f.deliveries, text)
	f.mu.Unlock()
	return nil
}

func (f *FakeSink) Deliveries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deliveries...)
}

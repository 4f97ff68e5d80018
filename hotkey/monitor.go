package hotkey

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Monitor turns a Provider's key state into press/release edges. Check
// is one poll tick; the caller owns the loop so tests can drive it
// deterministically.
type Monitor struct {
	provider Provider
	log      zerolog.Logger

	mu   sync.Mutex
	keys []string
	down map[string]bool
}

func NewMonitor(p Provider, logger zerolog.Logger) *Monitor {
	return &Monitor{
		provider: p,
		log:      logger,
		down:     make(map[string]bool),
	}
}

// SetKeys validates and installs a new watch set. Any remembered
// key-down state is dropped so stale releases cannot fire against the
// new set.
func (m *Monitor) SetKeys(keys []string) error {
	normalized := make([]string, len(keys))
	for i, k := range keys {
		normalized[i] = NormalizeKey(k)
	}
	if err := validateKeys(normalized); err != nil {
		return err
	}
	sort.Strings(normalized)

	if err := m.provider.Watch(normalized); err != nil {
		return err
	}

	m.mu.Lock()
	m.keys = normalized
	m.down = make(map[string]bool)
	m.mu.Unlock()
	m.log.Info().Strs("keys", normalized).Msg("watching keys")
	return nil
}

// Check samples every watched key once and returns the edges since the
// previous call, in key order.
func (m *Monitor) Check() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []Event
	for _, k := range m.keys {
		pressed := m.provider.IsPressed(k)
		switch {
		case pressed && !m.down[k]:
			m.down[k] = true
			events = append(events, Event{Key: k, Pressed: true})
		case !pressed && m.down[k]:
			m.down[k] = false
			events = append(events, Event{Key: k, Pressed: false})
		}
	}
	return events
}

// Reset forgets all held keys without emitting release edges.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.down = make(map[string]bool)
	m.mu.Unlock()
}

func (m *Monitor) Close() {
	m.provider.Close()
}

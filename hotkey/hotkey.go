package hotkey

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid key binding set.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "hotkey config: " + e.Reason
}

// Provider reports the live up/down state of watched keys. Implementations
// exist for evdev (linux), golang.design/x/hotkey (elsewhere), and tests.
type Provider interface {
	// Watch replaces the watched key set. Keys are normalized letters.
	Watch(keys []string) error
	// IsPressed reports whether the key is currently held down.
	IsPressed(key string) bool
	Close()
}

// Event is one edge observed by a Monitor poll.
type Event struct {
	Key     string
	Pressed bool // true for press edge, false for release
}

// NormalizeKey maps user-supplied key names onto the canonical form used
// throughout: trimmed, upper-cased.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// validateKeys checks a normalized key set: non-empty, single letters
// A-Z, no duplicates.
func validateKeys(keys []string) error {
	if len(keys) == 0 {
		return &ConfigError{Reason: "no keys configured"}
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if len(k) != 1 || k[0] < 'A' || k[0] > 'Z' {
			return &ConfigError{Reason: fmt.Sprintf("unsupported key %q (single letters A-Z only)", k)}
		}
		if seen[k] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate key %q", k)}
		}
		seen[k] = true
	}
	return nil
}

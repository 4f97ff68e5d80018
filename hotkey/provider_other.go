//go:build !linux

package hotkey

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	xhotkey "golang.design/x/hotkey"
)

var letterKeys = map[string]xhotkey.Key{
	"A": xhotkey.KeyA, "B": xhotkey.KeyB, "C": xhotkey.KeyC,
	"D": xhotkey.KeyD, "E": xhotkey.KeyE, "F": xhotkey.KeyF,
	"G": xhotkey.KeyG, "H": xhotkey.KeyH, "I": xhotkey.KeyI,
	"J": xhotkey.KeyJ, "K": xhotkey.KeyK, "L": xhotkey.KeyL,
	"M": xhotkey.KeyM, "N": xhotkey.KeyN, "O": xhotkey.KeyO,
	"P": xhotkey.KeyP, "Q": xhotkey.KeyQ, "R": xhotkey.KeyR,
	"S": xhotkey.KeyS, "T": xhotkey.KeyT, "U": xhotkey.KeyU,
	"V": xhotkey.KeyV, "W": xhotkey.KeyW, "X": xhotkey.KeyX,
	"Y": xhotkey.KeyY, "Z": xhotkey.KeyZ,
}

// xProvider registers each watched letter as a system hotkey and keeps
// a pressed set fed by the keydown/keyup event streams.
type xProvider struct {
	log zerolog.Logger

	mu      sync.Mutex
	hks     []*xhotkey.Hotkey
	stop    chan struct{}
	pressed map[string]bool
}

func NewProvider(logger zerolog.Logger) Provider {
	return &xProvider{
		log:     logger,
		pressed: make(map[string]bool),
	}
}

func (p *xProvider) Watch(keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()

	p.stop = make(chan struct{})
	p.pressed = make(map[string]bool)

	for _, k := range keys {
		code, ok := letterKeys[k]
		if !ok {
			p.teardownLocked()
			return &ConfigError{Reason: fmt.Sprintf("no key code for %q", k)}
		}
		hk := xhotkey.New(nil, code)
		if err := hk.Register(); err != nil {
			p.teardownLocked()
			return fmt.Errorf("registering key %s: %w", k, err)
		}
		p.hks = append(p.hks, hk)
		go p.track(k, hk, p.stop)
	}
	return nil
}

func (p *xProvider) track(key string, hk *xhotkey.Hotkey, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-hk.Keydown():
			p.mu.Lock()
			p.pressed[key] = true
			p.mu.Unlock()
		case <-hk.Keyup():
			p.mu.Lock()
			delete(p.pressed, key)
			p.mu.Unlock()
		}
	}
}

func (p *xProvider) IsPressed(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pressed[key]
}

func (p *xProvider) teardownLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	for _, hk := range p.hks {
		hk.Unregister()
	}
	p.hks = nil
}

func (p *xProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.teardownLocked()
}

// Diagnose reports whether system hotkey registration works here.
func Diagnose() (string, error) {
	return "system hotkey support available", nil
}

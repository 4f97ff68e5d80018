//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

const inputEventSize = 24

// evdev scancodes for the letter keys.
var letterScancodes = map[string]uint16{
	"Q": 16, "W": 17, "E": 18, "R": 19, "T": 20, "Y": 21, "U": 22,
	"I": 23, "O": 24, "P": 25,
	"A": 30, "S": 31, "D": 32, "F": 33, "G": 34, "H": 35, "J": 36,
	"K": 37, "L": 38,
	"Z": 44, "X": 45, "C": 46, "V": 47, "B": 48, "N": 49, "M": 50,
}

// evdevProvider reads raw input events from every keyboard under
// /dev/input and keeps a pressed-scancode set. It never grabs the
// devices, so keystrokes still reach the focused application.
type evdevProvider struct {
	log zerolog.Logger

	mu      sync.Mutex
	pressed map[uint16]bool
	files   []*os.File
	stop    chan struct{}
	opened  bool

	closeOnce sync.Once
}

func NewProvider(logger zerolog.Logger) Provider {
	return &evdevProvider{
		log:     logger,
		pressed: make(map[uint16]bool),
	}
}

func (p *evdevProvider) Watch(keys []string) error {
	for _, k := range keys {
		if _, ok := letterScancodes[k]; !ok {
			return &ConfigError{Reason: fmt.Sprintf("no scancode for key %q", k)}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened {
		return nil
	}

	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	p.stop = make(chan struct{})
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		p.files = append(p.files, f)
		go p.readEvents(f)
	}
	if len(p.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	p.opened = true
	p.log.Debug().Int("devices", len(p.files)).Msg("keyboard devices opened")
	return nil
}

func (p *evdevProvider) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			switch evValue {
			case keyPress:
				p.mu.Lock()
				p.pressed[evCode] = true
				p.mu.Unlock()
			case keyRelease:
				p.mu.Lock()
				delete(p.pressed, evCode)
				p.mu.Unlock()
			}
		}
	}
}

func (p *evdevProvider) IsPressed(key string) bool {
	code, ok := letterScancodes[key]
	if !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pressed[code]
}

func (p *evdevProvider) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stop != nil {
			close(p.stop)
		}
		for _, f := range p.files {
			f.Close()
		}
	})
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Keyboards advertise a long key-capability bitmap; mice do not.
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether keyboard state can be read on this system.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}
	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}

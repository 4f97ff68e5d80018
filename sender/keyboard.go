package sender

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
	"github.com/rs/zerolog"
)

var letterVK = map[string]int{
	"A": keybd_event.VK_A, "B": keybd_event.VK_B, "C": keybd_event.VK_C,
	"D": keybd_event.VK_D, "E": keybd_event.VK_E, "F": keybd_event.VK_F,
	"G": keybd_event.VK_G, "H": keybd_event.VK_H, "I": keybd_event.VK_I,
	"J": keybd_event.VK_J, "K": keybd_event.VK_K, "L": keybd_event.VK_L,
	"M": keybd_event.VK_M, "N": keybd_event.VK_N, "O": keybd_event.VK_O,
	"P": keybd_event.VK_P, "Q": keybd_event.VK_Q, "R": keybd_event.VK_R,
	"S": keybd_event.VK_S, "T": keybd_event.VK_T, "U": keybd_event.VK_U,
	"V": keybd_event.VK_V, "W": keybd_event.VK_W, "X": keybd_event.VK_X,
	"Y": keybd_event.VK_Y, "Z": keybd_event.VK_Z,
}

// KeyboardSink types the transcript into the focused application:
// clipboard copy, chat key tap, paste combo, optional enter. The delay
// between taps gives the target time to open its input field.
type KeyboardSink struct {
	chatVK   int
	keyDelay time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	kb     keybd_event.KeyBonding
	inited bool
}

func NewKeyboardSink(chatKey string, keyDelay time.Duration, logger zerolog.Logger) (*KeyboardSink, error) {
	vk, ok := letterVK[normalizeChatKey(chatKey)]
	if !ok {
		return nil, fmt.Errorf("unsupported chat key %q (single letters A-Z only)", chatKey)
	}
	return &KeyboardSink{
		chatVK:   vk,
		keyDelay: keyDelay,
		log:      logger,
	}, nil
}

func normalizeChatKey(k string) string {
	if len(k) == 1 && k[0] >= 'a' && k[0] <= 'z' {
		return string(k[0] - 'a' + 'A')
	}
	return k
}

// init builds the key bonding lazily so construction stays side-effect
// free. Linux needs /dev/uinput access, which is worth failing on at
// delivery time with a clear error rather than at startup.
func (s *KeyboardSink) init() error {
	if s.inited {
		return nil
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	s.kb = kb
	s.inited = true
	return nil
}

func (s *KeyboardSink) Deliver(text string, autoSend bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		return &DeliveryError{Stage: "clipboard", Err: err}
	}
	if err := s.init(); err != nil {
		return &DeliveryError{Stage: "chat key", Err: err}
	}

	if err := s.tap(s.chatVK, false); err != nil {
		return &DeliveryError{Stage: "chat key", Err: err}
	}
	time.Sleep(s.keyDelay)

	if err := s.tap(keybd_event.VK_V, true); err != nil {
		return &DeliveryError{Stage: "paste", Err: err}
	}
	time.Sleep(s.keyDelay)

	if autoSend {
		if err := s.tap(keybd_event.VK_ENTER, false); err != nil {
			return &DeliveryError{Stage: "send", Err: err}
		}
	}

	s.log.Debug().Int("chars", len(text)).Bool("sent", autoSend).Msg("text delivered")
	return nil
}

// tap presses and releases one key, with the platform's paste modifier
// when asked.
func (s *KeyboardSink) tap(vk int, withPasteModifier bool) error {
	s.kb.Clear()
	s.kb.SetKeys(vk)
	if withPasteModifier {
		if runtime.GOOS == "darwin" {
			s.kb.HasSuper(true)
		} else {
			s.kb.HasCTRL(true)
		}
	}
	return s.kb.Launching()
}

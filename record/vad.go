package record

import (
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadMode     = 3
	vadFrameMs  = 20
	vadDebounce = 3 // consecutive speech frames to confirm voice

	vadTickInterval = 500 * time.Millisecond
)

// silenceWatcher taps the recorder's sample stream through webrtcvad
// and fires its callback once per session if no speech shows up within
// warnAfter of the recording starting.
type silenceWatcher struct {
	vad        *webrtcvad.VAD
	sampleRate int
	frameBytes int
	warnAfter  time.Duration
	onSilence  func()

	mu            sync.Mutex
	buf           []byte
	speechRun     int
	voiceDetected bool
	startedAt     time.Time
	warned        bool
}

func newSilenceWatcher(sampleRate int, warnAfter time.Duration, onSilence func()) (*silenceWatcher, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &silenceWatcher{
		vad:        v,
		sampleRate: sampleRate,
		frameBytes: sampleRate * vadFrameMs / 1000 * 2,
		warnAfter:  warnAfter,
		onSilence:  onSilence,
	}, nil
}

// Feed accepts float32 capture frames. Called from the audio callback
// goroutine, so it must stay cheap.
func (w *silenceWatcher) Feed(samples []float32) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		w.buf = append(w.buf, byte(v), byte(v>>8))
	}

	for len(w.buf) >= w.frameBytes {
		frame := w.buf[:w.frameBytes]
		w.buf = w.buf[w.frameBytes:]

		active, err := w.vad.Process(w.sampleRate, frame)
		if err != nil {
			continue
		}
		if active {
			w.speechRun++
			if w.speechRun >= vadDebounce {
				w.voiceDetected = true
			}
		} else {
			w.speechRun = 0
		}
	}
}

func (w *silenceWatcher) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = w.buf[:0]
	w.speechRun = 0
	w.voiceDetected = false
	w.warned = false
	w.startedAt = time.Now()
}

// check fires the warning when the session has run warnAfter with no
// confirmed speech. At most one warning per session.
func (w *silenceWatcher) check() bool {
	w.mu.Lock()
	fire := !w.warned && !w.voiceDetected && time.Since(w.startedAt) >= w.warnAfter
	if fire {
		w.warned = true
	}
	w.mu.Unlock()
	if fire && w.onSilence != nil {
		w.onSilence()
	}
	return fire
}

// run polls until the session ends.
func (w *silenceWatcher) run(stop <-chan struct{}) {
	ticker := time.NewTicker(vadTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

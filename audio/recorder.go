package audio

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoAudio is returned by Stop when the stream produced zero chunks
// (near-instant release or a dead input).
var ErrNoAudio = errors.New("no audio data captured")

// Recorder buffers live capture chunks for one utterance. The stream
// callback is the producer, Stop is the consumer; the mutex covers only
// the append and the drain, never the stream I/O itself.
type Recorder struct {
	device CaptureDevice
	log    zerolog.Logger

	// observer, if set, sees every chunk outside the buffer lock.
	// Used for the VAD tap. Set before Start.
	observer func(samples []float32)

	mu        sync.Mutex
	chunks    [][]float32
	recording bool
}

func NewRecorder(device CaptureDevice, logger zerolog.Logger) *Recorder {
	return &Recorder{device: device, log: logger}
}

// SetFrameObserver installs a per-chunk tap. Must be called while not
// recording.
func (r *Recorder) SetFrameObserver(fn func(samples []float32)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// Start clears the buffer and opens the capture stream.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return &CaptureError{Op: "start", Err: errors.New("recording already in progress")}
	}
	r.chunks = nil
	r.recording = true
	observer := r.observer
	r.mu.Unlock()

	r.device.SetCallback(func(samples []float32) {
		chunk := make([]float32, len(samples))
		copy(chunk, samples)

		r.mu.Lock()
		if !r.recording {
			r.mu.Unlock()
			return
		}
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()

		if observer != nil {
			observer(chunk)
		}
	})

	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return &CaptureError{Op: "start", Err: err}
	}

	r.log.Info().Str("device", r.device.DeviceName()).Msg("recording started")
	return nil
}

// Stop closes the stream and drains the buffer into one flat sample
// slice in arrival order. The buffer is cleared either way.
func (r *Recorder) Stop() ([]float32, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, &CaptureError{Op: "stop", Err: errors.New("no recording in progress")}
	}
	r.recording = false
	r.mu.Unlock()

	r.device.Stop()
	r.device.ClearCallback()

	r.mu.Lock()
	chunks := r.chunks
	r.chunks = nil
	r.mu.Unlock()

	if len(chunks) == 0 {
		return nil, &CaptureError{Op: "stop", Err: ErrNoAudio}
	}

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	samples := make([]float32, 0, total)
	for _, c := range chunks {
		samples = append(samples, c...)
	}

	r.log.Info().Int("samples", total).Msg("recording stopped")
	return samples, nil
}

// Abort closes the stream and discards any buffered audio. No-op when
// not recording. Used on shutdown.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.recording = false
	r.chunks = nil
	r.mu.Unlock()

	r.device.Stop()
	r.device.ClearCallback()
	r.log.Info().Msg("recording aborted")
}

// IsRecording is a non-blocking snapshot.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

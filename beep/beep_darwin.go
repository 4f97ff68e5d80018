//go:build darwin

package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx     *malgo.AllocatedContext
	device       *malgo.Device
	startSamples []byte
	endSamples   []byte
	errorSamples []byte
	soundOnce    sync.Once

	// Playback cursor, touched from the audio callback.
	playBuf atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{
		Data: dataCallback,
	})
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	startSamples = tickBytes(startFreq, 0.03, startVolume, startDecay)
	endSamples = tickBytes(endFreq, 0.05, endVolume, endDecay)
	errorSamples = doubleBeepBytes(errorFreq, 0.08, 0.05, errorVolume, errorDecay)

	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	samples := playBuf.Load()
	if samples == nil || len(*samples) == 0 {
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}

	pos := playPos.Load()
	total := uint32(len(*samples))
	want := frameCount * 2
	remaining := total - pos

	if remaining == 0 {
		playBuf.Store(nil)
		for i := range pOutput {
			pOutput[i] = 0
		}
		return
	}
	if want > remaining {
		want = remaining
	}

	copy(pOutput[:want], (*samples)[pos:pos+want])
	playPos.Store(pos + want)
	for i := want; i < frameCount*2; i++ {
		pOutput[i] = 0
	}
}

func tickBytes(freq, duration, volume, decay float64) []byte {
	n := int(sampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func doubleBeepBytes(freq, beepDur, gapDur, volume, decay float64) []byte {
	b := tickBytes(freq, beepDur, volume, decay)
	gap := make([]byte, int(sampleRate*gapDur)*2)
	out := make([]byte, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	out = append(out, b...)
	return out
}

func play(samples []byte) {
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	playBuf.Store(&samples)

	if err := device.Start(); err != nil {
		// Device handles go stale across sleep/wake; rebuild once.
		device.Uninit()
		if err := initDevice(); err != nil {
			playBuf.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playBuf.Store(nil)
		}
	}
}

func cue(samples *[]byte) {
	if disabled.Load() {
		return
	}
	soundOnce.Do(initSound)
	go play(*samples)
}

func Init()      { soundOnce.Do(initSound) }
func PlayStart() { cue(&startSamples) }
func PlayEnd()   { cue(&endSamples) }
func PlayError() { cue(&errorSamples) }

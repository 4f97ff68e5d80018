//go:build linux

package beep

import (
	"math"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	startSamples []int16
	endSamples   []int16
	errorSamples []int16
	soundOnce    sync.Once
)

func initSound() {
	// 200ms tails so the PulseAudio buffer fills before the stream drains.
	startSamples = tick(startFreq, 0.2, startVolume, startDecay)
	endSamples = tick(endFreq, 0.2, endVolume, endDecay)
	errorSamples = doubleBeep(errorFreq, 0.08, 0.05, errorVolume, errorDecay)
}

// tick generates an exponentially decaying sine, interleaved stereo to
// match the playback sink format.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur)*2)
	out := make([]int16, 0, len(b)*2+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	out = append(out, b...)
	return out
}

func play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func cue(samples *[]int16) {
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

// Package beep plays short audible cues around recording sessions so
// the user knows the push-to-talk key registered without looking at the
// status line.
package beep

import "sync/atomic"

var disabled atomic.Bool

// Disable silences all cues (-quiet flag).
func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Recording started: high pitch, snappy
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// Recording stopped: a step lower
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Something failed: low double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

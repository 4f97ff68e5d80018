// Package audio owns microphone access: device enumeration, the capture
// stream, and the per-utterance sample buffer.
package audio

import "fmt"

// DataCallback receives one chunk of mono float32 samples from the
// capture stream. It runs on the audio backend's own goroutine and must
// not block.
type DataCallback func(samples []float32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// CaptureError reports a failure opening, closing, or draining the
// capture stream.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

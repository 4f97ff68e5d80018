// Package encoder writes captured utterances to FLAC files for later
// inspection (-dump flag).
package encoder

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	BlockSize     = 4096
	BitsPerSample = 16
	Channels      = 1
)

// FlacEncoder compresses mono float32 capture into an in-memory FLAC
// stream.
type FlacEncoder struct {
	buf        bytes.Buffer
	enc        *flac.Encoder
	sampleRate int
}

func NewFlac(sampleRate int) (*FlacEncoder, error) {
	e := &FlacEncoder{sampleRate: sampleRate}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      0,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

// Encode appends samples to the stream, block by block.
func (e *FlacEncoder) Encode(samples []float32) error {
	for pos := 0; pos < len(samples); pos += BlockSize {
		end := pos + BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := e.encodeBlock(samples[pos:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *FlacEncoder) encodeBlock(block []float32) error {
	samples32 := make([]int32, len(block))
	for i, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		samples32[i] = int32(s * 32767)
	}

	subframe := &frame.Subframe{
		SubHeader: frame.SubHeader{
			Pred: frame.PredVerbatim,
		},
		Samples:  samples32,
		NSamples: len(block),
	}

	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    uint32(e.sampleRate),
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{subframe},
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	return nil
}

func (e *FlacEncoder) Close() error {
	return e.enc.Close()
}

func (e *FlacEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// DumpFile encodes one utterance and writes it to path.
func DumpFile(path string, samples []float32, sampleRate int) error {
	e, err := NewFlac(sampleRate)
	if err != nil {
		return err
	}
	if err := e.Encode(samples); err != nil {
		return err
	}
	if err := e.Close(); err != nil {
		return fmt.Errorf("finalizing flac stream: %w", err)
	}
	return os.WriteFile(path, e.Bytes(), 0o644)
}

package encoder

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
)

func sine(n int) []float32 {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return samples
}

func TestEncodeProducesDecodableStream(t *testing.T) {
	e, err := NewFlac(16000)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Encode(sine(BlockSize*2 + 100)); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	stream, err := flac.New(bytes.NewReader(e.Bytes()))
	if err != nil {
		t.Fatalf("encoded stream does not parse: %v", err)
	}
	defer stream.Close()
	if stream.Info.SampleRate != 16000 {
		t.Errorf("sample rate = %d", stream.Info.SampleRate)
	}
	if stream.Info.NChannels != 1 {
		t.Errorf("channels = %d", stream.Info.NChannels)
	}
}

func TestDumpFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utterance.flac")
	if err := DumpFile(path, sine(BlockSize), 16000); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := flac.New(bytes.NewReader(data)); err != nil {
		t.Fatalf("dumped file does not parse: %v", err)
	}
}

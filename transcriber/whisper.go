package transcriber

import (
	"fmt"
	"os"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// whisperBackend runs a local whisper.cpp model. The loader serializes
// all calls, so no locking here.
type whisperBackend struct {
	model    whisper.Model
	language string
}

// WhisperFactory returns a BackendFactory that loads the ggml model at
// modelPath. The file is checked up front so a missing model fails fast
// instead of inside the C library.
func WhisperFactory(modelPath, language string) BackendFactory {
	return func() (Backend, error) {
		if _, err := os.Stat(modelPath); err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
		model, err := whisper.New(modelPath)
		if err != nil {
			return nil, fmt.Errorf("loading whisper model %s: %w", modelPath, err)
		}
		return &whisperBackend{model: model, language: language}, nil
	}
}

func (w *whisperBackend) Transcribe(samples []float32) ([]Segment, error) {
	ctx, err := w.model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whisper context: %w", err)
	}
	if w.language != "" {
		if err := ctx.SetLanguage(w.language); err != nil {
			return nil, fmt.Errorf("whisper language %q: %w", w.language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper process: %w", err)
	}

	var segments []Segment
	for {
		seg, err := ctx.NextSegment()
		if err != nil {
			break
		}
		segments = append(segments, Segment{
			Text:  seg.Text,
			Start: seg.Start,
			End:   seg.End,
		})
	}
	return segments, nil
}

func (w *whisperBackend) Close() error {
	return w.model.Close()
}

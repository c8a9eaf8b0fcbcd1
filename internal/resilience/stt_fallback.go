package resilience

import (
	"context"

	"github.com/equiproom/jerseyvox/pkg/provider/stt"
)

// STTFallback implements [stt.Transcriber] with automatic failover across
// multiple transcription backends. Each backend has its own circuit
// breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Transcriber]
	name  string
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Transcriber, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
		name:  primary.Name(),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *STTFallback) AddFallback(t stt.Transcriber) {
	f.group.AddFallback(t.Name(), t)
}

// Name implements stt.Transcriber.
func (f *STTFallback) Name() string {
	return f.name
}

// Transcribe transcribes the utterance with the first healthy backend.
func (f *STTFallback) Transcribe(ctx context.Context, audio []byte, format string) (stt.Transcript, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (stt.Transcript, error) {
		return t.Transcribe(ctx, audio, format)
	})
}

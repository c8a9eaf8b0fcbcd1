// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber wraps a batch transcription service (a local whisper.cpp
// server, the OpenAI audio API) and exposes a uniform one-shot call: a
// complete utterance in, a transcript out. The session layer records a full
// utterance before asking for text, so no streaming surface is needed.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package stt

import (
	"context"
	"time"
)

// Audio formats accepted by Transcribe. Providers may support a subset and
// must return an error for formats they cannot handle.
const (
	// FormatWAV is a complete RIFF/WAV file.
	FormatWAV = "wav"

	// FormatPCM is raw 16-bit signed little-endian PCM, 16 kHz mono unless
	// the provider was configured otherwise.
	FormatPCM = "pcm"
)

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0-1.0). Zero when the
	// provider does not report confidence.
	Confidence float64

	// Duration is the length of the transcribed audio, when known.
	Duration time.Duration
}

// Transcriber is the abstraction over any batch STT backend.
type Transcriber interface {
	// Name identifies the backend for logs and metrics ("whisper",
	// "openai").
	Name() string

	// Transcribe converts one complete utterance to text. format is one of
	// the Format constants. Returns an error if the audio cannot be
	// processed or ctx is cancelled first.
	Transcribe(ctx context.Context, audio []byte, format string) (Transcript, error)
}

// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber to feed controlled transcripts and inspect which audio
// the caller delivered, without a live STT backend.
//
// Example:
//
//	tr := &mock.Transcriber{
//	    Transcript: stt.Transcript{Text: "add two jerseys for jalen"},
//	}
//	got, err := tr.Transcribe(ctx, audio, stt.FormatWAV)
package mock

import (
	"context"
	"sync"

	"github.com/equiproom/jerseyvox/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is a copy of the audio passed to Transcribe.
	Audio []byte
	// Format is the format passed to Transcribe.
	Format string
}

// Transcriber is a mock implementation of stt.Transcriber.
// Zero values for response fields cause methods to return zero values and
// nil errors. Set Err to inject errors.
type Transcriber struct {
	mu sync.Mutex

	// TranscriberName is returned by Name. Defaults to "mock".
	TranscriberName string

	// Transcript is returned by Transcribe.
	Transcript stt.Transcript

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Name returns TranscriberName, defaulting to "mock".
func (t *Transcriber) Name() string {
	if t.TranscriberName == "" {
		return "mock"
	}
	return t.TranscriberName
}

// Transcribe records the call and returns Transcript, Err.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, format string) (stt.Transcript, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(audio))
	copy(cp, audio)
	t.Calls = append(t.Calls, TranscribeCall{Ctx: ctx, Audio: cp, Format: format})
	return t.Transcript, t.Err
}

// CallCount returns the number of Transcribe invocations. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (t *Transcriber) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)

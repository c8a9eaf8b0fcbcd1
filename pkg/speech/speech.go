// Package speech defines the Speaker interface for voiced feedback.
//
// The session speaks confirmations and error prompts through a Speaker.
// Cancel supports barge-in: when the user starts talking while playback is
// running, the session cancels the current utterance immediately.
package speech

import (
	"context"
	"log/slog"
)

// Speaker voices text to the user.
//
// Implementations must be safe for concurrent use. Cancel may be called
// from a different goroutine than Speak and must interrupt an in-flight
// Speak promptly; the interrupted Speak returns without error.
type Speaker interface {
	// Speak voices text and blocks until playback completes, is cancelled,
	// or ctx expires.
	Speak(ctx context.Context, text string) error

	// Cancel stops the current utterance, if any. Safe to call when
	// nothing is playing.
	Cancel()
}

// Logger is a Speaker that writes utterances to the log instead of an
// audio device. Used in headless deployments where confirmations reach the
// user through the state feed.
type Logger struct{}

// Speak implements Speaker.
func (Logger) Speak(ctx context.Context, text string) error {
	slog.Info("speak", "text", text)
	return nil
}

// Cancel implements Speaker.
func (Logger) Cancel() {}

var _ Speaker = Logger{}

// Package mock provides a test double for the speech.Speaker interface.
package mock

import (
	"context"
	"sync"

	"github.com/equiproom/jerseyvox/pkg/speech"
)

// Speaker is a mock implementation of speech.Speaker.
//
// By default Speak returns immediately. Set Block to make Speak wait until
// Cancel or context expiry, for exercising barge-in paths.
type Speaker struct {
	mu sync.Mutex

	// Block makes Speak wait for Cancel or ctx.Done.
	Block bool

	// Err, if non-nil, is returned from Speak.
	Err error

	// Spoken records every text passed to Speak in order.
	Spoken []string

	// CancelCount is the number of Cancel invocations.
	CancelCount int

	cancelCh chan struct{}
}

// Speak records the call and returns Err. With Block set, it waits for the
// next Cancel or for ctx to expire.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.Spoken = append(s.Spoken, text)
	block := s.Block
	if block && s.cancelCh == nil {
		s.cancelCh = make(chan struct{})
	}
	ch := s.cancelCh
	err := s.Err
	s.mu.Unlock()

	if err != nil || !block {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel records the call and releases a blocked Speak.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CancelCount++
	if s.cancelCh != nil {
		close(s.cancelCh)
		s.cancelCh = nil
	}
}

// SpokenTexts returns a copy of everything spoken so far. Thread-safe.
func (s *Speaker) SpokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}

var _ speech.Speaker = (*Speaker)(nil)

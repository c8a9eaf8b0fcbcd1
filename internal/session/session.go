// Package session drives a voice turn from recorded audio to a spoken
// confirmation. A session owns exactly one in-flight turn at a time and
// moves through a fixed set of states; concurrent turn attempts are
// rejected rather than queued.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/confirm"
	"github.com/equiproom/jerseyvox/internal/executor"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/internal/nlu"
	"github.com/equiproom/jerseyvox/internal/notify"
	"github.com/equiproom/jerseyvox/internal/observe"
	"github.com/equiproom/jerseyvox/internal/resolver"
	"github.com/equiproom/jerseyvox/pkg/provider/stt"
	"github.com/equiproom/jerseyvox/pkg/speech"
)

// State is the session's position in the turn lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateInterpreting State = "interpreting"
	StateExecuting    State = "executing"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// active reports whether the state belongs to an in-flight turn.
func (s State) active() bool {
	switch s {
	case StateRecording, StateTranscribing, StateInterpreting, StateExecuting:
		return true
	}
	return false
}

var (
	// ErrBusy is returned when a turn is started while another is in flight.
	ErrBusy = errors.New("session: a turn is already in flight")

	// ErrNoTranscriber is returned for audio turns when no STT provider is
	// configured.
	ErrNoTranscriber = errors.New("session: no transcriber configured")

	// ErrNotRecording is returned by FinishRecording and CancelRecording
	// when the session is not in the recording state.
	ErrNotRecording = errors.New("session: not recording")
)

// Defaults applied when the corresponding Config field is zero.
const (
	defaultTurnTimeout = 30 * time.Second
	defaultResetDelay  = 5 * time.Second
)

// unknownFallback is spoken when a turn produced only an unclassifiable
// command, so the speaker always hears something.
const unknownFallback = "Sorry, I didn't catch that."

// StateChange is delivered to Watch subscribers on every transition.
type StateChange struct {
	From   State  `json:"from"`
	To     State  `json:"to"`
	TurnID string `json:"turn_id,omitempty"`
}

// Turn is the outcome of one transcript-to-confirmation cycle.
type Turn struct {
	// ID identifies the turn in audit entries and logs.
	ID string `json:"id"`

	// Transcript is the text that was interpreted, either transcribed
	// from audio or supplied directly.
	Transcript string `json:"transcript"`

	// Source reports whether the model or the grammar produced the commands.
	Source nlu.Source `json:"source"`

	// Results holds one entry per executed command, in utterance order.
	Results []executor.Result `json:"results"`

	// Confirmation is the spoken summary. Empty for turns that executed
	// only read-only commands.
	Confirmation string `json:"confirmation,omitempty"`
}

// Config holds a session's collaborators.
type Config struct {
	// Store is the inventory store. Required.
	Store inventory.Store

	// Transcriber converts turn audio to text. May be nil, in which case
	// audio turns are rejected and only Interpret works.
	Transcriber stt.Transcriber

	// Interpreter turns transcripts into commands. Required.
	Interpreter *nlu.Interpreter

	// Resolver binds commands to inventory rows. Required.
	Resolver *resolver.Resolver

	// Notifier receives low-stock events. May be nil.
	Notifier notify.Notifier

	// Speaker voices confirmations. May be nil to stay silent.
	Speaker speech.Speaker

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// LowStockThreshold is passed through to the executor.
	LowStockThreshold int

	// TurnTimeout bounds a single turn. Defaults to 30s.
	TurnTimeout time.Duration

	// ResetDelay is how long success or error lingers before the session
	// returns to idle. Defaults to 5s.
	ResetDelay time.Duration
}

// Session is the turn state machine. All methods are safe for concurrent
// use; at most one turn runs at a time.
type Session struct {
	store       inventory.Store
	transcriber stt.Transcriber
	interpreter *nlu.Interpreter
	resolver    *resolver.Resolver
	notifier    notify.Notifier
	speaker     speech.Speaker
	metrics     *observe.Metrics
	confirmer   *confirm.Generator
	threshold   int
	turnTimeout time.Duration
	resetDelay  time.Duration

	mem *resolver.SizeMemory

	mu         sync.Mutex
	state      State
	turnID     string
	cancelTurn context.CancelFunc
	resetTimer *time.Timer
	turnSeq    int
	subs       map[chan StateChange]struct{}

	now func() time.Time
}

// New creates a Session. Store, Interpreter, and Resolver are required.
func New(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if cfg.Interpreter == nil {
		return nil, errors.New("session: interpreter is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("session: resolver is required")
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	tt := cfg.TurnTimeout
	if tt <= 0 {
		tt = defaultTurnTimeout
	}
	rd := cfg.ResetDelay
	if rd <= 0 {
		rd = defaultResetDelay
	}
	return &Session{
		store:       cfg.Store,
		transcriber: cfg.Transcriber,
		interpreter: cfg.Interpreter,
		resolver:    cfg.Resolver,
		notifier:    cfg.Notifier,
		speaker:     cfg.Speaker,
		metrics:     m,
		confirmer:   confirm.New(),
		threshold:   cfg.LowStockThreshold,
		turnTimeout: tt,
		resetDelay:  rd,
		mem:         resolver.NewSizeMemory(),
		state:       StateIdle,
		subs:        make(map[chan StateChange]struct{}),
		now:         time.Now,
	}, nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TurnID returns the identifier of the current or most recent turn.
func (s *Session) TurnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnID
}

// Watch subscribes to state transitions. The returned cancel function must
// be called to release the subscription. Slow consumers drop transitions
// rather than blocking the session.
func (s *Session) Watch() (<-chan StateChange, func()) {
	ch := make(chan StateChange, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
	return ch, cancel
}

// StartRecording moves the session to the recording state. Starting while
// a confirmation is being spoken barges in: speech is cancelled and the
// pending auto-reset is dropped. Starting while a turn is in flight
// returns [ErrBusy].
func (s *Session) StartRecording() error {
	s.mu.Lock()
	if s.state.active() {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.turnSeq++
	s.turnID = fmt.Sprintf("turn-%d-%d", s.now().UnixMilli(), s.turnSeq)
	s.setStateLocked(StateRecording)
	s.mu.Unlock()

	// Barge-in: a new utterance silences the previous confirmation.
	if s.speaker != nil {
		s.speaker.Cancel()
	}
	return nil
}

// CancelRecording abandons an in-progress recording without a turn.
func (s *Session) CancelRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return ErrNotRecording
	}
	s.setStateLocked(StateIdle)
	return nil
}

// FinishRecording ends the recording and runs the full turn pipeline on
// the captured audio. It blocks until the turn completes, fails, or the
// turn timeout expires.
func (s *Session) FinishRecording(ctx context.Context, audio []byte, format string) (*Turn, error) {
	s.mu.Lock()
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}
	if s.transcriber == nil {
		s.setStateLocked(StateIdle)
		s.mu.Unlock()
		return nil, ErrNoTranscriber
	}
	turnID := s.turnID
	s.setStateLocked(StateTranscribing)
	s.mu.Unlock()

	return s.runTurn(ctx, turnID, audio, format, "")
}

// Interpret runs a turn on an already-transcribed utterance, skipping the
// transcription stage. Used by the text API and by tests.
func (s *Session) Interpret(ctx context.Context, transcript string) (*Turn, error) {
	s.mu.Lock()
	if s.state.active() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.turnSeq++
	turnID := fmt.Sprintf("turn-%d-%d", s.now().UnixMilli(), s.turnSeq)
	s.turnID = turnID
	s.setStateLocked(StateInterpreting)
	s.mu.Unlock()

	if s.speaker != nil {
		s.speaker.Cancel()
	}
	return s.runTurn(ctx, turnID, nil, "", transcript)
}

// Cancel abandons the in-flight turn, if any, and silences the speaker.
// Cancelling mid-recording discards the buffered audio; cancelling during
// transcription or interpretation aborts the turn context. Once execution
// has started the turn runs to completion: the store write may already be
// in flight and is not abortable.
func (s *Session) Cancel() {
	s.mu.Lock()
	var cancel context.CancelFunc
	switch s.state {
	case StateRecording:
		s.setStateLocked(StateIdle)
	case StateTranscribing, StateInterpreting:
		cancel = s.cancelTurn
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.speaker != nil {
		s.speaker.Cancel()
	}
}

// runTurn executes the transcribe → interpret → resolve → execute →
// confirm pipeline. Callers have already transitioned into the first
// relevant state and stored turnID.
func (s *Session) runTurn(ctx context.Context, turnID string, audio []byte, format, transcript string) (turn *Turn, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	s.mu.Lock()
	s.cancelTurn = cancel
	s.mu.Unlock()

	ctx, span := observe.StartTurnSpan(ctx, turnID)
	defer span.End()

	log := observe.Logger(ctx).With("turn_id", turnID)
	turnStart := s.now()

	s.metrics.ActiveTurns.Add(ctx, 1)
	defer func() {
		s.metrics.ActiveTurns.Add(ctx, -1)
		s.metrics.TurnDuration.Record(ctx, s.now().Sub(turnStart).Seconds())
		s.mu.Lock()
		s.cancelTurn = nil
		if err != nil {
			s.setStateLocked(StateError)
		} else {
			s.setStateLocked(StateSuccess)
		}
		s.scheduleResetLocked()
		s.mu.Unlock()
	}()

	// Transcribe.
	if transcript == "" {
		start := s.now()
		tr, terr := s.transcriber.Transcribe(ctx, audio, format)
		s.metrics.TranscribeDuration.Record(ctx, s.now().Sub(start).Seconds())
		if terr != nil {
			s.metrics.RecordProviderError(ctx, s.transcriber.Name(), "stt")
			return nil, fmt.Errorf("session: transcribe: %w", terr)
		}
		transcript = tr.Text
		log.Info("transcribed", "text", transcript, "confidence", tr.Confidence)
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("session: empty transcript")
	}

	// Interpret against a fresh snapshot.
	s.setState(StateInterpreting)
	snapshot, lerr := s.store.List(ctx)
	if lerr != nil {
		return nil, fmt.Errorf("session: snapshot: %w", lerr)
	}

	start := s.now()
	cmds, source := s.interpreter.Interpret(ctx, transcript, snapshot)
	s.metrics.InterpretDuration.Record(ctx, s.now().Sub(start).Seconds())
	if source == nlu.SourceGrammar {
		s.metrics.InterpreterFallbacks.Add(ctx, 1)
	}

	// Resolve and execute each command in utterance order. Later commands
	// see the effects of earlier ones through the shared snapshot.
	s.setState(StateExecuting)
	exec := executor.New(executor.Config{
		Store:             s.store,
		Notifier:          s.notifier,
		LowStockThreshold: s.threshold,
		Actor:             turnID,
	})
	snap := &executor.Snapshot{Rows: snapshot}

	turn = &Turn{ID: turnID, Transcript: transcript, Source: source}
	var phrases []string

	for _, cmd := range cmds {
		start = s.now()
		res, rerr := s.resolver.Resolve(cmd, snap.Rows, s.mem)
		s.metrics.ResolveDuration.Record(ctx, s.now().Sub(start).Seconds())
		if rerr != nil {
			s.metrics.RecordCommand(ctx, string(cmd.Type), "unresolved")
			return turn, fmt.Errorf("session: resolve %s: %w", cmd.Type, rerr)
		}

		start = s.now()
		result, xerr := exec.Execute(ctx, res, snap)
		s.metrics.ExecuteDuration.Record(ctx, s.now().Sub(start).Seconds())
		if xerr != nil {
			s.metrics.RecordCommand(ctx, string(cmd.Type), "failed")
			if errors.Is(xerr, executor.ErrPersistence) {
				s.metrics.Rollbacks.Add(ctx, 1)
			}
			return turn, fmt.Errorf("session: execute %s: %w", cmd.Type, xerr)
		}
		s.metrics.RecordCommand(ctx, string(cmd.Type), "ok")

		s.rememberSize(res)
		turn.Results = append(turn.Results, result)
		if phrase, ok := s.confirmer.Confirm(result); ok {
			phrases = append(phrases, phrase)
		}
	}

	turn.Confirmation = strings.Join(phrases, " ")
	if turn.Confirmation == "" && len(cmds) == 1 && cmds[0].Type == command.TypeUnknown {
		turn.Confirmation = unknownFallback
	}
	if turn.Confirmation != "" && s.speaker != nil {
		// Speaking happens off the turn path so the API call returns as
		// soon as the inventory is settled. Barge-in cancels it.
		go func(text string) {
			if serr := s.speaker.Speak(context.WithoutCancel(ctx), text); serr != nil {
				slog.Warn("confirmation speech failed", "turn_id", turnID, "err", serr)
			}
		}(turn.Confirmation)
	}

	log.Info("turn complete",
		"source", source,
		"commands", len(turn.Results),
		"confirmation", turn.Confirmation,
	)
	return turn, nil
}

// rememberSize records the size a mutation spoke explicitly so later
// commands for the same player and edition inherit it. Sizes the
// resolver defaulted are skipped: remembering an inferred size would
// let a guess masquerade as a preference on the next turn.
func (s *Session) rememberSize(res resolver.Resolution) {
	if res.SizeInferred {
		return
	}
	cmd := res.Command
	switch cmd.Type {
	case command.TypeAdd, command.TypeRemove, command.TypeSet, command.TypeTurnIn, command.TypeLaundryReturn, command.TypeOrder:
	default:
		return
	}
	// The size-mutating set writes cmd.Size as the new value, so it is
	// also the size worth remembering.
	size := cmd.Size
	if cmd.PlayerName == "" || size == "" {
		return
	}
	s.mem.Remember(cmd.PlayerName, string(cmd.Edition), size)
}

// SizeMemory exposes the session's size memory, mainly for tests and the
// session status endpoint.
func (s *Session) SizeMemory() *resolver.SizeMemory {
	return s.mem
}

// setState transitions to next and notifies watchers.
func (s *Session) setState(next State) {
	s.mu.Lock()
	s.setStateLocked(next)
	s.mu.Unlock()
}

// setStateLocked must be called with s.mu held.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	change := StateChange{From: s.state, To: next, TurnID: s.turnID}
	s.state = next
	for ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// scheduleResetLocked arms the timer that returns the session to idle
// after a terminal state. Must be called with s.mu held.
func (s *Session) scheduleResetLocked() {
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = time.AfterFunc(s.resetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == StateSuccess || s.state == StateError {
			s.setStateLocked(StateIdle)
		}
	})
}

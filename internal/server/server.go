// Package server exposes the voice pipeline over HTTP.
//
// The API is JSON throughout:
//
//   - POST /v1/turns           — run a full turn from a transcript or audio
//   - POST /v1/interpret       — dry run: transcript in, commands out
//   - GET  /v1/inventory       — current inventory snapshot
//   - GET  /v1/audit           — recent audit records, newest first
//   - GET  /v1/session         — session state and current turn ID
//   - POST /v1/session/cancel  — abort the in-flight turn
//   - GET  /v1/session/ws      — websocket stream of state transitions
//
// Health probes and Prometheus metrics are registered alongside the API so a
// single listener serves everything.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/equiproom/jerseyvox/internal/command"
	"github.com/equiproom/jerseyvox/internal/health"
	"github.com/equiproom/jerseyvox/internal/inventory"
	"github.com/equiproom/jerseyvox/internal/nlu"
	"github.com/equiproom/jerseyvox/internal/observe"
	"github.com/equiproom/jerseyvox/internal/session"
)

// Config holds the server's collaborators.
type Config struct {
	// Session drives turns. Required.
	Session *session.Session

	// Store serves the inventory and audit read endpoints. Required.
	Store inventory.Store

	// Interpreter handles dry-run interpretation. Required.
	Interpreter *nlu.Interpreter

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Checkers are evaluated by the /readyz probe.
	Checkers []health.Checker
}

// Server is the HTTP front end. Construct with [New], mount with [Handler].
type Server struct {
	session     *session.Session
	store       inventory.Store
	interpreter *nlu.Interpreter
	metrics     *observe.Metrics
	checkers    []health.Checker
}

// New creates a Server. Session, Store, and Interpreter are required.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, errors.New("server: session is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Interpreter == nil {
		return nil, errors.New("server: interpreter is required")
	}
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Server{
		session:     cfg.Session,
		store:       cfg.Store,
		interpreter: cfg.Interpreter,
		metrics:     m,
		checkers:    cfg.Checkers,
	}, nil
}

// Handler returns the full route tree wrapped in the metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/turns", s.handleTurn)
	mux.HandleFunc("POST /v1/interpret", s.handleInterpret)
	mux.HandleFunc("GET /v1/inventory", s.handleInventory)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("POST /v1/session/cancel", s.handleCancel)
	mux.HandleFunc("GET /v1/session/ws", s.handleWatch)

	health.New(s.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// turnRequest is the JSON body for POST /v1/turns. Exactly one of Transcript
// or Audio must be set; Audio is base64 in the JSON encoding.
type turnRequest struct {
	Transcript string `json:"transcript,omitempty"`
	Audio      []byte `json:"audio,omitempty"`
	Format     string `json:"format,omitempty"`
}

// handleTurn runs a complete turn and responds with the [session.Turn].
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		turn *session.Turn
		err  error
	)
	switch {
	case req.Transcript != "":
		turn, err = s.session.Interpret(r.Context(), req.Transcript)
	case len(req.Audio) > 0:
		if err = s.session.StartRecording(); err == nil {
			turn, err = s.session.FinishRecording(r.Context(), req.Audio, req.Format)
		}
	default:
		http.Error(w, "transcript or audio is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// interpretRequest is the JSON body for POST /v1/interpret.
type interpretRequest struct {
	Transcript string `json:"transcript"`
}

// interpretResponse carries the commands a transcript would produce.
type interpretResponse struct {
	Commands []command.Command `json:"commands"`
	Source   nlu.Source        `json:"source"`
}

// handleInterpret interprets a transcript without resolving or executing
// anything. The inventory snapshot is still passed to the interpreter so the
// model sees the same context a real turn would.
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Transcript == "" {
		http.Error(w, "transcript is required", http.StatusBadRequest)
		return
	}

	snapshot, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "list inventory: "+err.Error(), http.StatusInternalServerError)
		return
	}
	cmds, source := s.interpreter.Interpret(r.Context(), req.Transcript, snapshot)
	writeJSON(w, http.StatusOK, interpretResponse{Commands: cmds, Source: source})
}

// inventoryResponse wraps the snapshot for GET /v1/inventory.
type inventoryResponse struct {
	Rows []inventory.Row `json:"rows"`
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.List(r.Context())
	if err != nil {
		http.Error(w, "list inventory: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inventoryResponse{Rows: rows})
}

// auditResponse wraps audit records for GET /v1/audit.
type auditResponse struct {
	Entries []inventory.AuditEntry `json:"entries"`
}

// handleAudit lists recent audit records. The optional ?limit= query bounds
// the result; the store's default applies otherwise.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.store.ListAudit(r.Context(), limit)
	if err != nil {
		http.Error(w, "list audit: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Entries: entries})
}

// sessionResponse is the body for GET /v1/session and the cancel endpoint.
type sessionResponse struct {
	State  session.State `json:"state"`
	TurnID string        `json:"turn_id,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		State:  s.session.State(),
		TurnID: s.session.TurnID(),
	})
}

// handleCancel aborts the in-flight turn, if any, and silences speech.
func (s *Server) handleCancel(w http.ResponseWriter, _ *http.Request) {
	s.session.Cancel()
	writeJSON(w, http.StatusOK, sessionResponse{
		State:  s.session.State(),
		TurnID: s.session.TurnID(),
	})
}

// handleWatch upgrades to a websocket and streams one JSON [session.StateChange]
// per transition. The first message reports the current state so late joiners
// start consistent. The stream ends when the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ch, unsubscribe := s.session.Watch()
	defer unsubscribe()

	ctx := r.Context()
	initial := session.StateChange{To: s.session.State(), TurnID: s.session.TurnID()}
	if err := writeEvent(ctx, conn, initial); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-ch:
			if err := writeEvent(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

// writeEvent sends one state change as a text frame.
func writeEvent(ctx context.Context, conn *websocket.Conn, ev session.StateChange) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("server: marshal state change: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// writeTurnError maps session errors onto HTTP statuses.
func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrNoTranscriber):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	}
}

// writeJSON encodes v with the given status. Encoding failures surface as a
// plain 500 since headers are already written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

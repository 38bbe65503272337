package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

const maxBodyBytes = 16 << 10

// SessionManager is the part of *conversation.Manager the chat endpoints use.
type SessionManager interface {
	Create(ctx context.Context, lang qualify.Language) *conversation.Session
	Get(ctx context.Context, id string) (*conversation.Session, error)
	Send(ctx context.Context, id, utterance string) (conversation.TurnResult, error)
	Finish(ctx context.Context, id string) (conversation.Snapshot, error)
	Reset(ctx context.Context, id string) (conversation.Snapshot, error)
}

// Handler serves the public chat API over HTTP and WebSocket.
type Handler struct {
	sessions    SessionManager
	defaultLang qualify.Language
	logger      *logging.Logger
}

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type string `json:"type"` // "message", "finish", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type    string           `json:"type"` // "session", "message", "typing", "error", "pong"
	Session *SessionResponse `json:"session,omitempty"`
	Turn    *TurnResponse    `json:"turn,omitempty"`
	Error   *ErrorResponse   `json:"error,omitempty"`
}

// NewHandler creates a web chat handler. An empty defaultLang means Spanish.
func NewHandler(sessions SessionManager, defaultLang qualify.Language, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultLang == "" {
		defaultLang = qualify.DefaultLanguage
	}
	return &Handler{sessions: sessions, defaultLang: defaultLang, logger: logger}
}

// Routes mounts the chat endpoints, typically under /chat.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Post("/sessions/{sessionID}/messages", h.SendMessage)
	r.Post("/sessions/{sessionID}/finish", h.FinishSession)
	r.Post("/sessions/{sessionID}/reset", h.ResetSession)
	r.Get("/ws", h.HandleWebSocket)
}

// language picks the explicit code, then Accept-Language, then the default.
func (h *Handler) language(code string, r *http.Request) qualify.Language {
	if code = strings.TrimSpace(code); code == "" {
		code, _, _ = strings.Cut(r.Header.Get("Accept-Language"), ",")
	}
	if strings.TrimSpace(code) == "" {
		return h.defaultLang
	}
	return qualify.ParseLanguage(code)
}

// CreateSession handles POST /chat/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s := h.sessions.Create(r.Context(), h.language(req.Language, r))
	writeJSON(w, http.StatusCreated, sessionResponse(s.Snapshot()))
}

// GetSession handles GET /chat/sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err, h.defaultLang)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s.Snapshot()))
}

// SendMessage handles POST /chat/sessions/{sessionID}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, h.defaultLang)
		return
	}
	res, err := h.sessions.Send(r.Context(), id, req.Text)
	if err != nil {
		h.writeError(w, err, s.Language())
		return
	}
	writeJSON(w, http.StatusOK, turnResponse(id, res))
}

// FinishSession handles POST /chat/sessions/{sessionID}/finish
func (h *Handler) FinishSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Finish(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err, h.defaultLang)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(snap))
}

// ResetSession handles POST /chat/sessions/{sessionID}/reset
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err, h.defaultLang)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(snap))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, lang qualify.Language) {
	status, body := classify(err, lang)
	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", "error", err, "status", status)
	}
	if body.RetryAfterMS > 0 {
		secs := (body.RetryAfterMS + 999) / 1000
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeJSON(w, status, body)
}

// HandleWebSocket upgrades to WebSocket and runs turns in real time. The
// session query parameter resumes a session; without it a new one is created
// in the lang parameter's language.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	var s *conversation.Session
	if id := r.URL.Query().Get("session"); id != "" {
		existing, err := h.sessions.Get(ctx, id)
		if err != nil {
			_, body := classify(err, h.defaultLang)
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Error: &body})
			return
		}
		s = existing
	} else {
		s = h.sessions.Create(ctx, h.language(r.URL.Query().Get("lang"), r))
	}
	id := s.ID()

	snap := sessionResponse(s.Snapshot())
	if err := websocket.JSON.Send(conn, OutboundMessage{Type: "session", Session: &snap}); err != nil {
		return
	}
	h.logger.Info("webchat: connection opened", "session_id", id)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", id, "error", err)
			return
		}

		var out OutboundMessage
		switch msg.Type {
		case "ping":
			out = OutboundMessage{Type: "pong"}
		case "message":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
			out = h.wsTurn(ctx, s, msg.Text)
		case "finish":
			out = h.wsSnapshot(s, func() (conversation.Snapshot, error) { return h.sessions.Finish(ctx, id) })
		case "reset":
			out = h.wsSnapshot(s, func() (conversation.Snapshot, error) { return h.sessions.Reset(ctx, id) })
		default:
			continue
		}
		if err := websocket.JSON.Send(conn, out); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", id, "error", err)
			return
		}
	}
}

func (h *Handler) wsTurn(ctx context.Context, s *conversation.Session, text string) OutboundMessage {
	start := time.Now()
	res, err := h.sessions.Send(ctx, s.ID(), text)
	if err != nil {
		_, body := classify(err, s.Language())
		return OutboundMessage{Type: "error", Error: &body}
	}
	h.logger.Debug("webchat: turn served", "session_id", s.ID(), "step", res.Step, "duration_ms", time.Since(start).Milliseconds())
	turn := turnResponse(s.ID(), res)
	return OutboundMessage{Type: "message", Turn: &turn}
}

func (h *Handler) wsSnapshot(s *conversation.Session, op func() (conversation.Snapshot, error)) OutboundMessage {
	snap, err := op()
	if err != nil {
		_, body := classify(err, s.Language())
		return OutboundMessage{Type: "error", Error: &body}
	}
	resp := sessionResponse(snap)
	return OutboundMessage{Type: "session", Session: &resp}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

var _ SessionManager = (*conversation.Manager)(nil)

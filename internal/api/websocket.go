package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/identity"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketHandler serves /ws/assistant: one text frame in, one reply frame out.
type WebSocketHandler struct {
	*Handler
	conns         *ConnManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(h *Handler, conns *ConnManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		Handler:       h,
		conns:         conns,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsMessage is an inbound frame. A frame that is not JSON is a turn.
type wsMessage struct {
	Type    string                   `json:"type"`
	Text    string                   `json:"text,omitempty"`
	Context *domain.AssistantContext `json:"context,omitempty"`
}

// wsReply is an outbound frame.
type wsReply struct {
	Type           string                   `json:"type"`
	ConversationID string                   `json:"conversationId,omitempty"`
	Turn           *assistant.Turn          `json:"turn,omitempty"`
	Conversation   *assistant.View          `json:"conversation,omitempty"`
	Suggestions    []domain.Suggestion      `json:"suggestions,omitempty"`
	Context        *domain.AssistantContext `json:"context,omitempty"`
	Error          string                   `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	slog.Info("WebSocket connection request", "user_id", id.UserID, "session_id", id.SessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", id.UserID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", id.UserID)
		}
	}()

	h.conns.Register(id.UserID, id.SessionID, ws)
	defer h.conns.Unregister(id.UserID, id.SessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	view := h.current(r, id).View()
	if err := h.writeJSON(ctx, ws, wsReply{Type: "conversation", ConversationID: view.ID, Conversation: &view}); err != nil {
		slog.Debug("Failed to send conversation snapshot", "error", err)
		return
	}

	h.readLoop(ctx, ws, r, id)
	slog.Info("Assistant socket ended", "user_id", id.UserID, "session_id", id.SessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, r *http.Request, id identity.Identity) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", id.UserID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", id.UserID)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			msg = wsMessage{Type: "turn", Text: string(data)}
		}

		reply := h.handle(ctx, r, id, msg)
		if err := h.writeJSON(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", id.UserID)
			return
		}
	}
}

// handle resolves the conversation per frame so that a tab switching
// conversations over HTTP is followed by its socket.
func (h *WebSocketHandler) handle(ctx context.Context, r *http.Request, id identity.Identity, msg wsMessage) wsReply {
	conv := h.current(r, id)

	switch msg.Type {
	case "ping":
		return wsReply{Type: "pong"}
	case "context":
		if msg.Context == nil {
			return wsReply{Type: "error", Error: "missing_context"}
		}
		pushContext(conv, id, *msg.Context)
		actx := conv.Context()
		return wsReply{
			Type:           "context",
			ConversationID: conv.ID(),
			Context:        &actx,
			Suggestions:    h.engine.Suggestions(actx),
		}
	case "turn":
		if h.limiter != nil && !h.limiter.Allow(id.UserID) {
			return wsReply{Type: "error", ConversationID: conv.ID(), Error: "rate_limited"}
		}
		if msg.Context != nil {
			pushContext(conv, id, *msg.Context)
		}
		turn, err := h.engine.HandleTurn(ctx, conv, msg.Text)
		if errors.Is(err, assistant.ErrEmptyInput) {
			return wsReply{Type: "error", ConversationID: conv.ID(), Error: "empty_input"}
		}
		if errors.Is(err, assistant.ErrConversationDeleted) {
			return wsReply{Type: "error", ConversationID: conv.ID(), Error: "conversation_deleted"}
		}
		if err != nil {
			slog.Error("Turn failed", "error", err, "user_id", id.UserID, "conversation_id", conv.ID())
			return wsReply{Type: "error", ConversationID: conv.ID(), Error: "turn_failed"}
		}
		return wsReply{Type: "turn", ConversationID: conv.ID(), Turn: &turn}
	default:
		return wsReply{Type: "error", Error: "unknown_message_type"}
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

// Package api provides the HTTP and WebSocket handlers of the assistant.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/history"
	"github.com/ashureev/teamhub/internal/identity"
)

const maxBodyBytes = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	engine   *assistant.Engine
	sessions *assistant.Sessions
	history  *history.Store
	limiter  *RateLimiter
	logger   *slog.Logger
}

// NewHandler creates a new Handler. hist and limiter may be nil.
func NewHandler(engine *assistant.Engine, sessions *assistant.Sessions, hist *history.Store, limiter *RateLimiter) *Handler {
	return &Handler{
		engine:   engine,
		sessions: sessions,
		history:  hist,
		limiter:  limiter,
		logger:   slog.Default(),
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// requester returns the caller identity or writes 401.
func requester(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identity.FromContext(r.Context())
	if !ok || id.UserID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return identity.Identity{}, false
	}
	return id, true
}

// current returns the conversation bound to the caller's tab.
func (h *Handler) current(r *http.Request, id identity.Identity) *assistant.Conversation {
	return h.sessions.Current(r.Context(), id.UserID, id.SessionID, domain.AssistantContext{
		UserID:   id.UserID,
		UserName: id.Username,
	})
}

// pushContext applies a host context. The user id always comes from the
// authenticated identity, never from the payload.
func pushContext(conv *assistant.Conversation, id identity.Identity, actx domain.AssistantContext) {
	actx.UserID = id.UserID
	actx.CurrentUserRole = domain.ParseRole(string(actx.CurrentUserRole))
	conv.SetContext(actx)
}

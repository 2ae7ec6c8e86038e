package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/domain"
)

type turnRequest struct {
	Text    string                   `json:"text"`
	Context *domain.AssistantContext `json:"context,omitempty"`
}

type turnResponse struct {
	ConversationID string `json:"conversationId"`
	assistant.Turn
}

type conversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type commandView struct {
	Name        string          `json:"name"`
	Aliases     []string        `json:"aliases,omitempty"`
	Description string          `json:"description"`
	Usage       string          `json:"usage,omitempty"`
	Category    domain.Category `json:"category"`
}

// RegisterRoutes registers the assistant routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/assistant", func(r chi.Router) {
		if h.limiter != nil {
			r.With(h.limiter.Middleware).Post("/turn", h.Turn)
		} else {
			r.Post("/turn", h.Turn)
		}

		r.Get("/conversation", h.GetConversation)
		r.Put("/context", h.PutContext)
		r.Get("/conversations", h.ListConversations)
		r.Post("/conversations", h.NewConversation)
		r.Post("/conversations/{id}/open", h.OpenConversation)
		r.Delete("/conversations/{id}", h.DeleteConversation)
		r.Get("/suggestions", h.Suggestions)
		r.Get("/autocomplete", h.Autocomplete)
		r.Get("/commands", h.Commands)
		r.Get("/events", h.Events)
	})
}

// Turn sends one user input to the caller's conversation.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	var req turnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	conv := h.current(r, id)
	if req.Context != nil {
		pushContext(conv, id, *req.Context)
	}

	turn, err := h.engine.HandleTurn(r.Context(), conv, req.Text)
	if errors.Is(err, assistant.ErrEmptyInput) {
		Error(w, http.StatusBadRequest, "empty_input")
		return
	}
	if errors.Is(err, assistant.ErrConversationDeleted) {
		Error(w, http.StatusGone, "conversation_deleted")
		return
	}
	if err != nil {
		h.logger.Error("Turn failed", "error", err, "user_id", id.UserID, "conversation_id", conv.ID())
		Error(w, http.StatusInternalServerError, "turn failed")
		return
	}

	JSON(w, http.StatusOK, turnResponse{ConversationID: conv.ID(), Turn: turn})
}

// GetConversation returns the tab's current conversation.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.current(r, id).View())
}

// PutContext replaces the host context of the tab's conversation.
func (h *Handler) PutContext(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	var actx domain.AssistantContext
	if err := decodeJSON(w, r, &actx); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	conv := h.current(r, id)
	pushContext(conv, id, actx)
	JSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": conv.ID(),
		"context":        conv.Context(),
		"suggestions":    h.engine.Suggestions(conv.Context()),
	})
}

// ListConversations lists the caller's saved conversations, most recent first.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	out := []conversationSummary{}
	if h.history != nil {
		active := h.history.Active(r.Context(), id.UserID)
		for _, c := range h.history.List(r.Context(), id.UserID) {
			out = append(out, conversationSummary{
				ID:           c.ID,
				Title:        c.Title,
				MessageCount: len(c.Messages),
				Active:       c.ID == active,
				CreatedAt:    c.CreatedAt,
				UpdatedAt:    c.UpdatedAt,
			})
		}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"conversations": out})
}

// NewConversation binds the tab to a fresh conversation.
func (h *Handler) NewConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	// The new conversation inherits the page context of the previous one.
	actx := h.current(r, id).Context()
	conv := h.sessions.Start(r.Context(), id.UserID, id.SessionID, actx)
	JSON(w, http.StatusCreated, conv.View())
}

// OpenConversation binds the tab to one of the caller's conversations.
func (h *Handler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	conv, ok := h.sessions.Open(r.Context(), id.UserID, id.SessionID, chi.URLParam(r, "id"))
	if !ok {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	JSON(w, http.StatusOK, conv.View())
}

// DeleteConversation removes one of the caller's conversations.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}

	if !h.sessions.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")) {
		Error(w, http.StatusNotFound, "conversation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Suggestions returns the chips for the conversation's current page.
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": h.engine.Suggestions(h.current(r, id).Context()),
	})
}

// Autocomplete completes the partial input in ?q=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	id, ok := requester(w, r)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	JSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": h.engine.Autocomplete(q, h.current(r, id).Context()),
	})
}

// Commands lists the slash commands.
func (h *Handler) Commands(w http.ResponseWriter, _ *http.Request) {
	cmds := h.engine.Commands()
	out := make([]commandView, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, commandView{
			Name:        c.Name,
			Aliases:     c.Aliases,
			Description: c.Description,
			Usage:       c.Usage,
			Category:    c.Category,
		})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"commands": out})
}

// Events returns the most recent analytics events, oldest first.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events := []domain.Event{}
	if h.history != nil {
		if got := h.history.Events(r.Context(), limit); got != nil {
			events = got
		}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

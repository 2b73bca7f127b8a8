// Package handlers implements the HTTP handlers for the Bottega
// ordering service: the chat endpoint and thread inspection.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bottegalabs/bottega/internal/agent"
	"github.com/bottegalabs/bottega/internal/threads"
	"github.com/bottegalabs/bottega/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Agent   *agent.Agent
	Threads threads.Store
}

// New creates a Handlers instance.
func New(a *agent.Agent, ts threads.Store) *Handlers {
	return &Handlers{Agent: a, Threads: ts}
}

// Chat handles POST /chat. A request either delivers a new user
// message or, when the thread is suspended on a sensitive tool batch,
// a confirmation decision. "y" approves; any other confirmation text
// denies and is fed back to the model as the reason.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		thread *models.Thread
		err    error
	)

	switch {
	case req.Confirmation != "":
		if req.ThreadID == "" {
			respondError(w, http.StatusBadRequest, "No thread_id provided with confirmation")
			return
		}
		approved := strings.TrimSpace(req.Confirmation) == "y"
		thread, err = h.Agent.Resume(r.Context(), req.ThreadID, approved, req.Confirmation)

	case req.Message != "":
		thread, err = h.Agent.Send(r.Context(), req.ThreadID, req.Message)

	default:
		respondError(w, http.StatusBadRequest, "No message provided")
		return
	}

	if err != nil {
		var notFound *threads.ErrNotFound
		switch {
		case errors.Is(err, agent.ErrAwaitingApproval):
			respondError(w, http.StatusConflict, "Thread is awaiting approval; send a confirmation decision")
			return
		case errors.Is(err, agent.ErrNoPendingApproval):
			respondError(w, http.StatusConflict, "Thread has no pending approval")
			return
		case errors.As(err, &notFound):
			respondError(w, http.StatusNotFound, "Thread not found")
			return
		default:
			log.Error().Err(err).Str("thread_id", req.ThreadID).Msg("Chat turn failed")
			respondError(w, http.StatusInternalServerError, "An error occurred processing your request")
			return
		}
	}

	respondJSON(w, http.StatusOK, models.ChatResponse{
		Messages:         responseText(thread),
		ThreadID:         thread.ID,
		RequiresApproval: thread.AwaitingApproval(),
	})
}

// responseText picks what the client should display: the latest
// assistant text, or an approval prompt when the thread suspended on a
// batch whose assistant turn carried no text.
func responseText(thread *models.Thread) string {
	text := thread.LastAssistantText()
	if text != "" || !thread.AwaitingApproval() {
		return text
	}

	names := make([]string, 0, len(thread.Pending.Calls))
	for _, c := range thread.Pending.Calls {
		names = append(names, c.Name)
	}
	return "I need your approval before running: " + strings.Join(names, ", ") +
		`. Reply "y" to approve, or tell me what to change.`
}

// GetThread handles GET /threads/{threadID}.
func (h *Handlers) GetThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "threadID")

	thread, err := h.Threads.Get(r.Context(), id)
	if err != nil {
		var notFound *threads.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, "Thread not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, thread)
}

// ListThreads handles GET /threads.
func (h *Handlers) ListThreads(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Threads.List(r.Context(), 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"threads": ids})
}

// DeleteThread handles DELETE /threads/{threadID}.
func (h *Handlers) DeleteThread(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "threadID")

	if err := h.Threads.Delete(r.Context(), id); err != nil {
		var notFound *threads.ErrNotFound
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, "Thread not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

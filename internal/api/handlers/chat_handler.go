package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	appMiddleware "github.com/Hannan2004/RAG-N-ROLL/internal/api/middlewares"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
	"github.com/Hannan2004/RAG-N-ROLL/internal/services"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

type ChatHandler struct {
	chat       *services.ChatService
	typewriter *services.Typewriter
}

func NewChatHandler(chat *services.ChatService, typewriter *services.Typewriter) *ChatHandler {
	return &ChatHandler{chat: chat, typewriter: typewriter}
}

type askRequest struct {
	Question string `json:"question"`
}

type feedbackRequest struct {
	MessageIndex int    `json:"message_index"`
	Rating       string `json:"rating"`
}

type historyResponse struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []models.Message `json:"messages"`
	Feedback       map[int]string   `json:"feedback"`
}

// Ask handles one chat turn. With ?stream=true the normalized answer is
// revealed over SSE word by word; otherwise it is returned atomically.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	result, err := h.chat.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyQuestion):
			http.Error(w, "question is empty", http.StatusBadRequest)
		case errors.Is(err, session.ErrSessionNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if r.URL.Query().Get("stream") == "true" {
		h.streamResult(w, r, result)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// streamResult replays the completed answer as typewriter frames over SSE,
// closing with a done event carrying the full turn result.
func (h *ChatHandler) streamResult(w http.ResponseWriter, r *http.Request, result *services.TurnResult) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	emit := func(frame string) error {
		payload, err := json.Marshal(map[string]string{"text": frame})
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte("event: frame\ndata: ")); err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if _, err := h.typewriter.Stream(r.Context(), result.Answer, emit); err != nil {
		return
	}

	done, err := json.Marshal(result)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("event: done\ndata: "))
	_, _ = w.Write(done)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}

// Feedback records a thumbs-up/down rating for an assistant message.
func (h *ChatHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	ack, err := h.chat.Feedback(sessionID, req.MessageIndex, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			http.Error(w, "session not found", http.StatusNotFound)
		case errors.Is(err, session.ErrBadMessageIndex):
			http.Error(w, "no assistant message at that index", http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"acknowledgement": ack})
}

// Clear resets the conversation, keeping the sidebar selections.
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	convID, err := h.chat.Clear(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conversation_id": convID})
}

// History returns the full message list with feedback.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	messages, feedback, err := h.chat.History(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	convID, _ := h.chat.ConversationID(sessionID)
	writeJSON(w, http.StatusOK, historyResponse{
		ConversationID: convID,
		Messages:       messages,
		Feedback:       feedback,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	appMiddleware "github.com/Hannan2004/RAG-N-ROLL/internal/api/middlewares"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

type SessionHandler struct {
	sessions  *session.Store
	jwtSecret string
	met       *metrics.Metrics
}

func NewSessionHandler(sessions *session.Store, jwtSecret string, met *metrics.Metrics) *SessionHandler {
	return &SessionHandler{sessions: sessions, jwtSecret: jwtSecret, met: met}
}

type createSessionResponse struct {
	Token          string   `json:"token"`
	SessionID      string   `json:"session_id"`
	ConversationID string   `json:"conversation_id"`
	Countries      []string `json:"countries"`
	BusinessTypes  []string `json:"business_types"`
}

// Create starts a new anonymous session and returns its bearer token plus
// the fixed selector options for the sidebar.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	h.met.ActiveSessions.Set(float64(h.sessions.Count()))

	token, err := appMiddleware.NewSessionToken(h.jwtSecret, sess.ID)
	if err != nil {
		http.Error(w, "could not issue session token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Token:          token,
		SessionID:      sess.ID,
		ConversationID: sess.Conversation.ID,
		Countries:      models.SupportedCountries,
		BusinessTypes:  models.SupportedBusinessTypes,
	})
}

// GetContext returns the current country/business type selections.
func (h *SessionHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	uc, err := h.sessions.Context(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, uc)
}

// SetContext updates the country/business type selections. Empty values
// clear a selection; non-empty values must be from the fixed option sets.
func (h *SessionHandler) SetContext(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := appMiddleware.SessionID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var uc models.UserContext
	if err := json.NewDecoder(r.Body).Decode(&uc); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if uc.Country != "" && !models.ValidCountry(uc.Country) {
		http.Error(w, "unsupported country", http.StatusBadRequest)
		return
	}
	if uc.BusinessType != "" && !models.ValidBusinessType(uc.BusinessType) {
		http.Error(w, "unsupported business type", http.StatusBadRequest)
		return
	}

	if err := h.sessions.SetContext(sessionID, uc); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, uc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

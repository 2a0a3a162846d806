// Package session holds the per-session conversation state. Sessions are
// explicit objects handed to handlers by ID; there is no ambient global
// state and nothing survives the process.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

// conversationIDFormat derives conversation IDs from the creation time.
const conversationIDFormat = "20060102_150405"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrBadMessageIndex = errors.New("feedback index does not reference an existing assistant message")
)

// Session is the state for one user's uninterrupted interaction.
type Session struct {
	ID           string
	Conversation models.Conversation
	Context      models.UserContext
	CreatedAt    time.Time
	LastActive   time.Time
}

// Store is an in-memory session registry. All mutation goes through the
// store so a session is never shared as a mutable pointer.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create registers a new session with an empty conversation and no context
// selections.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID: uuid.NewString(),
		Conversation: models.Conversation{
			ID:       now.Format(conversationIDFormat),
			Messages: []models.Message{},
			Feedback: make(map[int]string),
		},
		CreatedAt:  now,
		LastActive: now,
	}
	s.sessions[sess.ID] = sess

	out := *sess
	return &out
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Exists reports whether a session is registered. A hit refreshes the
// session's idle clock, since this runs on every authenticated request.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.LastActive = s.now()
	}
	return ok
}

// ExpireIdle drops sessions whose last activity is older than maxIdle and
// returns how many were removed.
func (s *Store) ExpireIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// AppendMessage appends one immutable message and returns its index.
func (s *Store) AppendMessage(id string, msg models.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sess.Conversation.Messages = append(sess.Conversation.Messages, msg)
	return len(sess.Conversation.Messages) - 1, nil
}

// Messages returns a copy of the conversation's message sequence.
func (s *Store) Messages(id string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]models.Message, len(sess.Conversation.Messages))
	copy(out, sess.Conversation.Messages)
	return out, nil
}

// Feedback returns a copy of the feedback map.
func (s *Store) Feedback(id string) (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make(map[int]string, len(sess.Conversation.Feedback))
	for k, v := range sess.Conversation.Feedback {
		out[k] = v
	}
	return out, nil
}

// SetFeedback records a rating for an assistant message. The index must
// reference an existing assistant message at the time of the write.
func (s *Store) SetFeedback(id string, index int, rating string) error {
	if !models.ValidFeedback(rating) {
		return fmt.Errorf("invalid rating %q", rating)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if index < 0 || index >= len(sess.Conversation.Messages) {
		return ErrBadMessageIndex
	}
	if sess.Conversation.Messages[index].Role != models.RoleAssistant {
		return ErrBadMessageIndex
	}
	sess.Conversation.Feedback[index] = rating
	return nil
}

// SetContext updates the sidebar selections.
func (s *Store) SetContext(id string, uc models.UserContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.Context = uc
	return nil
}

// Context returns the current sidebar selections.
func (s *Store) Context(id string) (models.UserContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return models.UserContext{}, ErrSessionNotFound
	}
	return sess.Context, nil
}

// ConversationID returns the current conversation identifier.
func (s *Store) ConversationID(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	return sess.Conversation.ID, nil
}

// Clear resets messages and feedback and regenerates the conversation ID.
// Country and business type selections survive the reset.
func (s *Store) Clear(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrSessionNotFound
	}
	sess.Conversation = models.Conversation{
		ID:       s.now().Format(conversationIDFormat),
		Messages: []models.Message{},
		Feedback: make(map[int]string),
	}
	return sess.Conversation.ID, nil
}

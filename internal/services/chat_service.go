package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
	"github.com/Hannan2004/RAG-N-ROLL/internal/retrieval"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

var ErrEmptyQuestion = errors.New("question is empty")

// Feedback acknowledgements shown to the user.
const (
	ackPositive = "Thank you for your positive feedback!"
	ackNegative = "Thank you for your feedback. We'll work on improving."
)

// ChatService is the conversation controller: it owns one interaction turn
// from user input to stored assistant response. The completion call is the
// only step that takes non-trivial wall-clock time; it is attempted exactly
// once per turn.
type ChatService struct {
	sessions  *session.Store
	retriever retrieval.Retriever
	llm       core.LLMProvider
	builder   *PromptBuilder
	numChunks int
	met       *metrics.Metrics
	log       zerolog.Logger
}

func NewChatService(sessions *session.Store, retriever retrieval.Retriever, llm core.LLMProvider, builder *PromptBuilder, numChunks int, met *metrics.Metrics, log zerolog.Logger) *ChatService {
	return &ChatService{
		sessions:  sessions,
		retriever: retriever,
		llm:       llm,
		builder:   builder,
		numChunks: numChunks,
		met:       met,
		log:       log,
	}
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	Answer         string    `json:"answer"`
	Failed         bool      `json:"failed"`
	MessageIndex   int       `json:"message_index"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Ask runs one turn: append the user message, build the context-augmented
// prompt, call the completion backend once, store and return the response.
// A completion failure never surfaces as an error; the apologetic fallback
// is stored as the assistant turn, tagged Failed so callers can tell it
// apart from a real answer.
func (s *ChatService) Ask(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s.met.ChatTurnsTotal.Inc()

	if _, err := s.sessions.AppendMessage(sessionID, models.Message{
		Role:    models.RoleUser,
		Content: question,
	}); err != nil {
		return nil, err
	}

	messages, err := s.sessions.Messages(sessionID)
	if err != nil {
		return nil, err
	}
	uc, err := s.sessions.Context(sessionID)
	if err != nil {
		return nil, err
	}

	// Retrieval is fail-soft: an empty chunk list degrades the prompt, it
	// never aborts the turn.
	chunks := s.retriever.Fetch(ctx, question, s.numChunks)

	prompt := s.builder.Build(question, messages, chunks, uc)

	answer, failed := s.complete(ctx, prompt)

	msg := models.Message{
		Role:      models.RoleAssistant,
		Content:   answer,
		Timestamp: time.Now(),
		Failed:    failed,
	}
	idx, err := s.sessions.AppendMessage(sessionID, msg)
	if err != nil {
		return nil, err
	}

	convID, err := s.sessions.ConversationID(sessionID)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Answer:         answer,
		Failed:         failed,
		MessageIndex:   idx,
		ConversationID: convID,
		Timestamp:      msg.Timestamp,
	}, nil
}

// complete makes the single completion attempt. On failure it substitutes
// the apologetic fallback embedding the failure detail.
func (s *ChatService) complete(ctx context.Context, prompt string) (answer string, failed bool) {
	start := time.Now()
	resp, err := s.llm.Generate(ctx, "", prompt)
	s.met.CompletionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		s.met.CompletionsTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Msg("completion failed")
		return fmt.Sprintf("I apologize, but I encountered an error: %v. Please try rephrasing your question.", err), true
	}

	s.met.CompletionsTotal.WithLabelValues("ok").Inc()
	// Normalize once here so history, the atomic response and the fully
	// revealed stream are all the same text.
	return FormatMarkdown(resp), false
}

// Feedback records a thumbs-up/down rating for an assistant message and
// returns a transient acknowledgement. It never alters message content.
func (s *ChatService) Feedback(sessionID string, messageIndex int, rating string) (string, error) {
	if err := s.sessions.SetFeedback(sessionID, messageIndex, rating); err != nil {
		return "", err
	}
	s.met.FeedbackTotal.WithLabelValues(rating).Inc()

	if rating == models.FeedbackPositive {
		return ackPositive, nil
	}
	return ackNegative, nil
}

// Clear resets the conversation and returns the fresh conversation ID.
// Country and business type selections are preserved.
func (s *ChatService) Clear(sessionID string) (string, error) {
	id, err := s.sessions.Clear(sessionID)
	if err != nil {
		return "", err
	}
	s.met.ConversationsCleared.Inc()
	return id, nil
}

// ConversationID returns the session's current conversation identifier.
func (s *ChatService) ConversationID(sessionID string) (string, error) {
	return s.sessions.ConversationID(sessionID)
}

// History returns the message sequence and feedback for a session.
func (s *ChatService) History(sessionID string) ([]models.Message, map[int]string, error) {
	messages, err := s.sessions.Messages(sessionID)
	if err != nil {
		return nil, nil, err
	}
	feedback, err := s.sessions.Feedback(sessionID)
	if err != nil {
		return nil, nil, err
	}
	return messages, feedback, nil
}

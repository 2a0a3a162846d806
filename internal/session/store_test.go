package session

import (
	"testing"
	"time"

	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

func TestCreateDefaults(t *testing.T) {
	s := NewStore()
	sess := s.Create()

	if sess.ID == "" {
		t.Fatal("expected non-empty session ID")
	}
	if sess.Conversation.ID == "" {
		t.Fatal("expected non-empty conversation ID")
	}
	if len(sess.Conversation.Messages) != 0 {
		t.Errorf("expected empty messages, got %d", len(sess.Conversation.Messages))
	}
	if len(sess.Conversation.Feedback) != 0 {
		t.Errorf("expected empty feedback, got %d", len(sess.Conversation.Feedback))
	}
	if sess.Context.Country != "" || sess.Context.BusinessType != "" {
		t.Error("expected no context selections on a new session")
	}
	if !s.Exists(sess.ID) {
		t.Error("created session should be registered")
	}
}

func TestAppendAndMessages(t *testing.T) {
	s := NewStore()
	sess := s.Create()

	idx, err := s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "hello"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}

	idx, err = s.AppendMessage(sess.ID, models.Message{Role: models.RoleAssistant, Content: "hi"})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected index 1, got %d", idx)
	}

	msgs, err := s.Messages(sess.ID)
	if err != nil {
		t.Fatalf("messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Timestamp.IsZero() {
		t.Error("expected a timestamp to be assigned on append")
	}
}

func TestFeedbackValidation(t *testing.T) {
	s := NewStore()
	sess := s.Create()

	// No messages yet: any index is invalid.
	if err := s.SetFeedback(sess.ID, 0, models.FeedbackPositive); err == nil {
		t.Error("expected error for feedback on empty conversation")
	}

	_, _ = s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "q"})
	_, _ = s.AppendMessage(sess.ID, models.Message{Role: models.RoleAssistant, Content: "a"})

	// Index 0 is a user message.
	if err := s.SetFeedback(sess.ID, 0, models.FeedbackPositive); err == nil {
		t.Error("expected error for feedback on a user message")
	}
	if err := s.SetFeedback(sess.ID, 2, models.FeedbackNegative); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if err := s.SetFeedback(sess.ID, 1, "meh"); err == nil {
		t.Error("expected error for unknown rating")
	}

	if err := s.SetFeedback(sess.ID, 1, models.FeedbackNegative); err != nil {
		t.Fatalf("valid feedback rejected: %v", err)
	}

	fb, err := s.Feedback(sess.ID)
	if err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	if fb[1] != models.FeedbackNegative {
		t.Errorf("expected negative feedback at index 1, got %q", fb[1])
	}

	msgs, _ := s.Messages(sess.ID)
	if len(fb) > len(msgs) {
		t.Errorf("feedback count %d exceeds message count %d", len(fb), len(msgs))
	}
}

func TestClearRegeneratesConversation(t *testing.T) {
	s := NewStore()
	// Control the clock so the regenerated ID is guaranteed to differ.
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }

	sess := s.Create()
	_ = s.SetContext(sess.ID, models.UserContext{Country: "India", BusinessType: "LLC"})
	_, _ = s.AppendMessage(sess.ID, models.Message{Role: models.RoleUser, Content: "q"})
	_, _ = s.AppendMessage(sess.ID, models.Message{Role: models.RoleAssistant, Content: "a"})
	_ = s.SetFeedback(sess.ID, 1, models.FeedbackPositive)

	oldID, _ := s.ConversationID(sess.ID)

	s.now = func() time.Time { return base.Add(time.Second) }
	newID, err := s.Clear(sess.ID)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if newID == oldID {
		t.Errorf("expected a fresh conversation ID, got %q twice", newID)
	}

	msgs, _ := s.Messages(sess.ID)
	if len(msgs) != 0 {
		t.Errorf("expected empty messages after clear, got %d", len(msgs))
	}
	fb, _ := s.Feedback(sess.ID)
	if len(fb) != 0 {
		t.Errorf("expected empty feedback after clear, got %d", len(fb))
	}

	uc, _ := s.Context(sess.ID)
	if uc.Country != "India" || uc.BusinessType != "LLC" {
		t.Errorf("context selections should survive clear, got %+v", uc)
	}
}

func TestExpireIdle(t *testing.T) {
	s := NewStore()
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }

	stale := s.Create()
	active := s.Create()

	// The active session is touched half way through the idle window.
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	if !s.Exists(active.ID) {
		t.Fatal("active session should exist")
	}

	s.now = func() time.Time { return base.Add(61 * time.Minute) }
	if removed := s.ExpireIdle(time.Hour); removed != 1 {
		t.Fatalf("expected 1 expired session, got %d", removed)
	}

	if s.Exists(stale.ID) {
		t.Error("stale session should have been removed")
	}
	if !s.Exists(active.ID) {
		t.Error("recently touched session should survive the sweep")
	}
	if s.Count() != 1 {
		t.Errorf("expected 1 live session, got %d", s.Count())
	}
}

func TestUnknownSession(t *testing.T) {
	s := NewStore()

	if _, err := s.AppendMessage("nope", models.Message{Role: models.RoleUser, Content: "q"}); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := s.Clear("nope"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := s.Messages("nope"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

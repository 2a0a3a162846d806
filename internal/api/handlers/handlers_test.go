package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appMiddleware "github.com/Hannan2004/RAG-N-ROLL/internal/api/middlewares"
	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core/ingestion_engine"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
	"github.com/Hannan2004/RAG-N-ROLL/internal/services"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

const testSecret = "test-secret"

var testMet = metrics.New()

type stubRetriever struct {
	chunks []models.RetrievedChunk
}

func (s stubRetriever) Fetch(context.Context, string, int) []models.RetrievedChunk {
	return s.chunks
}

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Generate(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

// newTestRouter wires the session and chat handlers the way the server does.
func newTestRouter(t *testing.T, llm *stubLLM) *chi.Mux {
	t.Helper()

	sessions := session.NewStore()
	chatSvc := services.NewChatService(sessions, stubRetriever{}, llm, services.NewPromptBuilder(7), 3, testMet, zerolog.Nop())
	typewriter := services.NewTypewriter(0, 0)

	sessionHandler := NewSessionHandler(sessions, testSecret, testMet)
	chatHandler := NewChatHandler(chatSvc, typewriter)

	r := chi.NewRouter()
	r.Post("/api/session", sessionHandler.Create)
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.SessionMiddleware(testSecret, sessions.Exists))
		protected.Get("/api/session/context", sessionHandler.GetContext)
		protected.Put("/api/session/context", sessionHandler.SetContext)
		protected.Post("/api/chat/ask", chatHandler.Ask)
		protected.Post("/api/chat/feedback", chatHandler.Feedback)
		protected.Post("/api/chat/clear", chatHandler.Clear)
		protected.Get("/api/chat/history", chatHandler.History)
	})
	return r
}

func createSession(t *testing.T, r http.Handler) (token string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("session create returned %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token         string   `json:"token"`
		Countries     []string `json:"countries"`
		BusinessTypes []string `json:"business_types"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad session response: %v", err)
	}
	if len(resp.Countries) != 8 || len(resp.BusinessTypes) != 5 {
		t.Errorf("expected 8 countries and 5 business types, got %d and %d",
			len(resp.Countries), len(resp.BusinessTypes))
	}
	return resp.Token
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "ok"})

	rec := doJSON(t, r, http.MethodPost, "/api/chat/ask", "", map[string]string{"question": "q"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsGarbageToken(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "ok"})

	rec := doJSON(t, r, http.MethodPost, "/api/chat/ask", "not-a-token", map[string]string{"question": "q"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAskRoundTrip(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "Register the company first."})
	token := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/chat/ask", token, map[string]string{"question": "How do I start?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask returned %d: %s", rec.Code, rec.Body.String())
	}

	var result services.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad ask response: %v", err)
	}
	if result.Answer != "Register the company first." {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.Failed {
		t.Error("turn should not be failed")
	}
}

func TestAskCompletionFailureReturnsFallback(t *testing.T) {
	r := newTestRouter(t, &stubLLM{err: errors.New("backend down")})
	token := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/chat/ask", token, map[string]string{"question": "q"})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed completion should still be a 200, got %d", rec.Code)
	}
	var result services.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if !result.Failed {
		t.Error("expected failed tag")
	}
	if !strings.Contains(strings.ToLower(result.Answer), "error") {
		t.Errorf("fallback should mention the error, got %q", result.Answer)
	}
}

func TestAskStreamMatchesAtomic(t *testing.T) {
	answer := "### Plan\n\nRegister first. Then open a bank account."
	r := newTestRouter(t, &stubLLM{response: answer})
	token := createSession(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/chat/ask?stream=true", token, map[string]string{"question": "q"})
	if rec.Code != http.StatusOK {
		t.Fatalf("stream ask returned %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE content type, got %q", ct)
	}

	// Parse the final frame and the done event out of the SSE body.
	var lastFrame string
	var done services.TurnResult
	for _, event := range strings.Split(rec.Body.String(), "\n\n") {
		lines := strings.SplitN(event, "\n", 2)
		if len(lines) != 2 {
			continue
		}
		data := strings.TrimPrefix(lines[1], "data: ")
		switch strings.TrimPrefix(lines[0], "event: ") {
		case "frame":
			var f struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal([]byte(data), &f); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			lastFrame = f.Text
		case "done":
			if err := json.Unmarshal([]byte(data), &done); err != nil {
				t.Fatalf("bad done event: %v", err)
			}
		}
	}

	if done.Answer == "" {
		t.Fatal("missing done event")
	}
	if lastFrame != done.Answer {
		t.Errorf("final frame must equal the atomic answer:\nframe:  %q\natomic: %q", lastFrame, done.Answer)
	}
}

func TestFeedbackAndHistory(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "an answer"})
	token := createSession(t, r)

	doJSON(t, r, http.MethodPost, "/api/chat/ask", token, map[string]string{"question": "q"})

	rec := doJSON(t, r, http.MethodPost, "/api/chat/feedback", token, map[string]any{
		"message_index": 1, "rating": "positive",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback returned %d: %s", rec.Code, rec.Body.String())
	}

	// Feedback on a user message is rejected.
	rec = doJSON(t, r, http.MethodPost, "/api/chat/feedback", token, map[string]any{
		"message_index": 0, "rating": "negative",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for feedback on a user message, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/chat/history", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history returned %d", rec.Code)
	}
	var hist struct {
		ConversationID string           `json:"conversation_id"`
		Messages       []models.Message `json:"messages"`
		Feedback       map[int]string   `json:"feedback"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("bad history response: %v", err)
	}
	if len(hist.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(hist.Messages))
	}
	if hist.Feedback[1] != "positive" {
		t.Errorf("expected positive feedback at index 1, got %q", hist.Feedback[1])
	}
}

func TestSetContextValidation(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "x"})
	token := createSession(t, r)

	rec := doJSON(t, r, http.MethodPut, "/api/session/context", token, models.UserContext{Country: "Atlantis"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported country, got %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/session/context", token, models.UserContext{Country: "India", BusinessType: "LLC"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set context returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/api/session/context", token, nil)
	var uc models.UserContext
	if err := json.Unmarshal(rec.Body.Bytes(), &uc); err != nil {
		t.Fatalf("bad context response: %v", err)
	}
	if uc.Country != "India" || uc.BusinessType != "LLC" {
		t.Errorf("unexpected context %+v", uc)
	}
}

func TestClearKeepsContext(t *testing.T) {
	r := newTestRouter(t, &stubLLM{response: "x"})
	token := createSession(t, r)

	doJSON(t, r, http.MethodPut, "/api/session/context", token, models.UserContext{Country: "Spain"})
	doJSON(t, r, http.MethodPost, "/api/chat/ask", token, map[string]string{"question": "q"})

	rec := doJSON(t, r, http.MethodPost, "/api/chat/clear", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear returned %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/chat/history", token, nil)
	var hist struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("bad history response: %v", err)
	}
	if len(hist.Messages) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(hist.Messages))
	}

	rec = doJSON(t, r, http.MethodGet, "/api/session/context", token, nil)
	var uc models.UserContext
	if err := json.Unmarshal(rec.Body.Bytes(), &uc); err != nil {
		t.Fatalf("bad context response: %v", err)
	}
	if uc.Country != "Spain" {
		t.Errorf("context should survive clear, got %+v", uc)
	}
}

// fakeCorpus is an in-memory core.CorpusStore for the document handler tests.
type fakeCorpus struct {
	docs map[string]*models.Document
}

func (f *fakeCorpus) CreateDocument(_ context.Context, doc *models.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeCorpus) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	return f.docs[id], nil
}

func (f *fakeCorpus) ListDocuments(context.Context) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeCorpus) UpdateDocumentStatus(context.Context, string, string) error { return nil }

func (f *fakeCorpus) DeleteDocument(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return errors.New("document not found")
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeCorpus) InsertDocumentChunks(context.Context, []models.DocumentChunk) error {
	return nil
}

func (f *fakeCorpus) SubstringSearchChunks(context.Context, string, int) ([]models.RetrievedChunk, error) {
	return nil, nil
}

func (f *fakeCorpus) VectorSearchChunks(context.Context, []float32, int) ([]models.RetrievedChunk, error) {
	return nil, nil
}

func (f *fakeCorpus) Close() error { return nil }

type fakeObject struct {
	deleted []string
}

func (f *fakeObject) UploadFile(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	return "https://" + bucket + ".s3.us-east-2.amazonaws.com/" + key, nil
}

func (f *fakeObject) DeleteFile(_ context.Context, bucket, key string) error {
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

func (f *fakeObject) GetFile(context.Context, string, string) ([]byte, error) { return nil, nil }

func newDocumentRouter(t *testing.T, store *fakeCorpus, obj *fakeObject) *chi.Mux {
	t.Helper()

	sessions := session.NewStore()
	ing := ingestion_engine.NewDocumentIngestor(store, obj, nil, nil, &ingestion_engine.IngestConfig{}, nil, zerolog.Nop())
	docHandler := NewDocumentHandler(store, obj, ing, &config.Config{BucketName: "docs"})
	sessionHandler := NewSessionHandler(sessions, testSecret, testMet)

	r := chi.NewRouter()
	r.Post("/api/session", sessionHandler.Create)
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.SessionMiddleware(testSecret, sessions.Exists))
		protected.Get("/api/documents", docHandler.List)
		protected.Delete("/api/documents/{id}", docHandler.Delete)
	})
	return r
}

func TestDocumentDelete(t *testing.T) {
	store := &fakeCorpus{docs: map[string]*models.Document{
		"doc1": {
			ID:         "doc1",
			FileName:   "act.pdf",
			StorageURL: "https://docs.s3.us-east-2.amazonaws.com/legal/act.pdf",
			Category:   "legal",
			Status:     "ready",
		},
	}}
	obj := &fakeObject{}
	r := newDocumentRouter(t, store, obj)
	token := createSession(t, r)

	rec := doJSON(t, r, http.MethodDelete, "/api/documents/doc1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}

	if len(obj.deleted) != 1 || obj.deleted[0] != "docs/legal/act.pdf" {
		t.Errorf("expected stored object docs/legal/act.pdf to be deleted, got %v", obj.deleted)
	}
	if _, ok := store.docs["doc1"]; ok {
		t.Error("document row should be gone after delete")
	}

	// A second delete finds nothing.
	rec = doJSON(t, r, http.MethodDelete, "/api/documents/doc1", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a deleted document, got %d", rec.Code)
	}
}

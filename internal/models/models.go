package models

import (
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Feedback ratings for assistant messages.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// SupportedCountries is the fixed set offered by the sidebar selector.
var SupportedCountries = []string{
	"India", "United States", "United Kingdom", "Singapore",
	"Spain", "Philippines", "Russia", "Other",
}

// SupportedBusinessTypes is the fixed set offered by the sidebar selector.
var SupportedBusinessTypes = []string{
	"LLC", "Corporation", "Sole Proprietorship", "Partnership", "Other",
}

// Message is one conversation turn. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Failed marks an assistant turn whose completion call errored and whose
	// content is the apologetic fallback rather than a real answer.
	Failed bool `json:"failed,omitempty"`
}

// Conversation owns the ordered message sequence and per-message feedback
// for one session. Reset regenerates ID and clears Messages and Feedback.
type Conversation struct {
	ID       string         `json:"id"`
	Messages []Message      `json:"messages"`
	Feedback map[int]string `json:"feedback"`
}

// UserContext holds the sidebar selections. Read-only to the prompt builder.
type UserContext struct {
	Country      string `json:"country,omitempty"`
	BusinessType string `json:"business_type,omitempty"`
}

// RetrievedChunk is a reference passage plus its source metadata. Transient;
// fetched fresh per query.
type RetrievedChunk struct {
	Text         string `json:"chunk"`
	RelativePath string `json:"relative_path"`
	Category     string `json:"category"`
}

// Document represents an uploaded corpus source file.
type Document struct {
	ID          string    `db:"id" json:"id"`
	FileName    string    `db:"file_name" json:"file_name"`
	StorageURL  string    `db:"storage_url" json:"storage_url"`
	ContentType string    `db:"content_type" json:"content_type"`
	Category    string    `db:"category" json:"category"`
	Status      string    `db:"status" json:"status"` // uploaded | processing | ready | failed
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk represents one text chunk from a corpus document.
type DocumentChunk struct {
	ID           string    `db:"id" json:"id"`
	DocumentID   string    `db:"document_id" json:"document_id"`
	Text         string    `db:"chunk" json:"chunk"`
	RelativePath string    `db:"relative_path" json:"relative_path"`
	Category     string    `db:"category" json:"category"`
	Embedding    []float32 `db:"embedding" json:"-"` // pgvector column
	Position     int       `db:"position" json:"position"`
	TokenCount   int       `db:"token_count" json:"token_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ValidCountry reports whether c is one of the supported countries.
func ValidCountry(c string) bool {
	for _, v := range SupportedCountries {
		if v == c {
			return true
		}
	}
	return false
}

// ValidBusinessType reports whether b is one of the supported types.
func ValidBusinessType(b string) bool {
	for _, v := range SupportedBusinessTypes {
		if v == b {
			return true
		}
	}
	return false
}

// ValidFeedback reports whether r is a recognized rating.
func ValidFeedback(r string) bool {
	return r == FeedbackPositive || r == FeedbackNegative
}

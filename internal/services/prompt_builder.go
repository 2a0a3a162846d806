package services

import (
	"fmt"
	"strings"

	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

// personaHeader is the fixed instruction prefix of every prompt.
const personaHeader = "You are a highly intelligent business assistant specializing in providing concise and accurate answers about setting up businesses internationally."

const promptInstructions = `Use the information between <context> tags to address the user's question and offer actionable insights.
If the information isn't in the context, you can provide general guidance based on common business practices.
Focus on practical, step-by-step advice when applicable.`

// PromptBuilder composes the completion prompt from the persona header,
// optional user context lines, a bounded history window, retrieved reference
// chunks and the current question. Deterministic given its inputs.
type PromptBuilder struct {
	SlideWindow int
}

func NewPromptBuilder(slideWindow int) *PromptBuilder {
	return &PromptBuilder{SlideWindow: slideWindow}
}

// HistoryWindow returns the most recent SlideWindow messages preceding the
// in-flight question. messages is the full conversation including the
// already-appended current question, which is always excluded so the prompt
// never duplicates it. Empty on the first turn.
func (b *PromptBuilder) HistoryWindow(messages []models.Message) []models.Message {
	if len(messages) <= 1 {
		return nil
	}
	end := len(messages) - 1
	start := end - b.SlideWindow
	if start < 0 {
		start = 0
	}
	return messages[start:end]
}

// Build assembles the prompt. All optional parts (context lines, history,
// chunks) may be absent; the result is well-formed regardless.
func (b *PromptBuilder) Build(question string, messages []models.Message, chunks []models.RetrievedChunk, uc models.UserContext) string {
	var sb strings.Builder

	sb.WriteString(personaHeader)
	sb.WriteString("\n")

	if uc.Country != "" {
		fmt.Fprintf(&sb, "Country: %s\n", uc.Country)
	}
	if uc.BusinessType != "" {
		fmt.Fprintf(&sb, "Business Type: %s\n", uc.BusinessType)
	}

	sb.WriteString("\n")
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\n<chat_history>\n")
	for _, m := range b.HistoryWindow(messages) {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	sb.WriteString("</chat_history>\n\n<context>\n")
	for _, ch := range chunks {
		sb.WriteString(ch.Text)
		if ch.RelativePath != "" {
			fmt.Fprintf(&sb, "\n(source: %s, category: %s)", ch.RelativePath, ch.Category)
		}
		sb.WriteString("\n---\n")
	}
	sb.WriteString("</context>\n\n<question>\n")
	sb.WriteString(question)
	sb.WriteString("\n</question>\n\nAnswer:")

	return sb.String()
}

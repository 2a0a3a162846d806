package services

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// cursorGlyph is appended to every intermediate frame and dropped from the
// final one.
const cursorGlyph = "▌"

var (
	headerRe   = regexp.MustCompile(`###\s+(.+)`)
	bulletRe   = regexp.MustCompile(`(?m)^\*\s+(.+)`)
	numberedRe = regexp.MustCompile(`(?m)^\d+\.\s+(.+)`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// FormatMarkdown normalizes markdown constructs (headers, bullet markers,
// numbered-list markers, bold spans) into a canonical form, paragraph by
// paragraph.
func FormatMarkdown(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	formatted := make([]string, len(paragraphs))

	for i, para := range paragraphs {
		para = headerRe.ReplaceAllString(para, "### $1")
		para = bulletRe.ReplaceAllString(para, "* $1")
		para = numberedRe.ReplaceAllString(para, "1. $1")
		para = boldRe.ReplaceAllString(para, "**$1**")
		formatted[i] = para
	}

	return strings.Join(formatted, "\n\n")
}

// Typewriter reveals a response incrementally, word by word within a
// paragraph and with a longer pause between paragraphs. Purely a display
// affordance: the fully revealed text is identical to the atomic rendering
// of the same source.
type Typewriter struct {
	WordDelay      time.Duration
	ParagraphDelay time.Duration
}

func NewTypewriter(wordDelay, paragraphDelay time.Duration) *Typewriter {
	return &Typewriter{WordDelay: wordDelay, ParagraphDelay: paragraphDelay}
}

// Stream normalizes text and emits reveal frames through emit. Every
// intermediate frame carries the cursor glyph; the final frame is the bare
// normalized text. Returns the final text.
func (t *Typewriter) Stream(ctx context.Context, text string, emit func(frame string) error) (string, error) {
	formatted := FormatMarkdown(text)
	paragraphs := strings.Split(formatted, "\n\n")

	var cur strings.Builder
	for pi, para := range paragraphs {
		if pi > 0 {
			cur.WriteString("\n\n")
			if err := emit(cur.String() + cursorGlyph); err != nil {
				return "", err
			}
			if err := t.pause(ctx, t.ParagraphDelay); err != nil {
				return "", err
			}
		}
		for wi, word := range strings.Split(para, " ") {
			if wi > 0 {
				cur.WriteString(" ")
			}
			cur.WriteString(word)
			if err := emit(cur.String() + cursorGlyph); err != nil {
				return "", err
			}
			if err := t.pause(ctx, t.WordDelay); err != nil {
				return "", err
			}
		}
	}

	final := cur.String()
	if err := emit(final); err != nil {
		return "", err
	}
	return final, nil
}

func (t *Typewriter) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package ingestion_engine

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

func collectChunks(t *testing.T, frags []string, targetTokens, overlapTokens int) []chunk {
	t.Helper()

	in := make(chan string, len(frags))
	for _, f := range frags {
		in <- f
	}
	close(in)

	ing := &DocumentIngestor{}
	g, ctx := errgroup.WithContext(context.Background())
	out := ing.streamChunk(ctx, g, in, targetTokens, overlapTokens)

	var got []chunk
	for c := range out {
		got = append(got, c)
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("chunking failed: %v", err)
	}
	return got
}

func TestStreamChunkGroupsFragments(t *testing.T) {
	frags := []string{
		strings.Repeat("a", 40), // ~10 tokens
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
		strings.Repeat("d", 40),
	}

	got := collectChunks(t, frags, 20, 0)

	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Pos != 0 || got[1].Pos != 1 {
		t.Errorf("expected sequential positions, got %d and %d", got[0].Pos, got[1].Pos)
	}
	for _, c := range got {
		if c.TokenCnt < 20 {
			t.Errorf("chunk below target token count: %d", c.TokenCnt)
		}
	}
}

func TestStreamChunkEmitsTail(t *testing.T) {
	got := collectChunks(t, []string{"short tail"}, 1000, 0)

	if len(got) != 1 {
		t.Fatalf("expected the tail to be emitted, got %d chunks", len(got))
	}
	if got[0].Text != "short tail" {
		t.Errorf("unexpected tail text %q", got[0].Text)
	}
}

func TestStreamChunkOverlap(t *testing.T) {
	frags := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}

	got := collectChunks(t, frags, 20, 10)

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	// With overlap, the start of each later chunk repeats the tail of the
	// previous one.
	prevLines := strings.Split(got[0].Text, "\n")
	tail := prevLines[len(prevLines)-1]
	if !strings.HasPrefix(got[1].Text, tail) {
		t.Errorf("expected chunk 1 to start with the tail of chunk 0")
	}
}

func TestStreamChunkEmptyInput(t *testing.T) {
	got := collectChunks(t, nil, 20, 5)
	if len(got) != 0 {
		t.Errorf("expected no chunks for empty input, got %d", len(got))
	}
}

func TestApproxTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 40), 10},
	}
	for _, tc := range cases {
		if got := approxTokens(tc.in); got != tc.want {
			t.Errorf("approxTokens(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCategoryFromKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"registration/india.pdf", "registration"},
		{"Licensing/us.docx", "licensing"},
		{"tax/spain/vat.pdf", "tax"},
		{"random/file.pdf", "general"},
		{"flatfile.pdf", "general"},
	}
	for _, tc := range cases {
		if got := CategoryFromKey(tc.key); got != tc.want {
			t.Errorf("CategoryFromKey(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key := ParseS3URL("https://my-bucket.s3.us-east-2.amazonaws.com/tax/vat.pdf")
	if bucket != "my-bucket" {
		t.Errorf("unexpected bucket %q", bucket)
	}
	if key != "tax/vat.pdf" {
		t.Errorf("unexpected key %q", key)
	}
}

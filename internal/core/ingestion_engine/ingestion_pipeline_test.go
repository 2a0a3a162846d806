package ingestion_engine

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestEnqueueShedsWhenFull(t *testing.T) {
	ing := NewDocumentIngestor(nil, nil, nil, nil, &IngestConfig{}, nil, zerolog.Nop())

	// No workers are started, so the queue only drains by capacity.
	n := 0
	for ing.Enqueue("doc") {
		n++
		if n > 1000 {
			t.Fatal("queue never reported full")
		}
	}
	if n != cap(ing.jobs) {
		t.Errorf("accepted %d jobs, want queue capacity %d", n, cap(ing.jobs))
	}

	if ing.Enqueue("one-more") {
		t.Error("enqueue on a full queue must not block or succeed")
	}
}

package ingestion_engine

import (
	"github.com/rs/zerolog"

	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
)

// IngestConfig tunes the streaming pipeline.
//
// TargetTokens:  approximate tokens per chunk (e.g., 500).
// OverlapTokens: token overlap between consecutive chunks for context bleed (e.g., 50).
// BatchSize:     how many chunks to embed/write in one batch (e.g., 32).
type IngestConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
}

// chunk is the internal representation passed through the pipeline.
//
// Pos:      stable, zero-based position of the chunk inside the document.
// Text:     chunk content (built from one or more fragments).
// TokenCnt: approximate token count (used for batching and overlap math).
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// DocumentIngestor orchestrates the background ingestion pipeline:
//
// store:     persistence for documents and corpus chunks.
// obj:       object storage for source files.
// embedder:  embedding provider.
// extractor: text extraction from raw document bytes.
// jobs:      in-memory queue of document IDs to process.
type DocumentIngestor struct {
	store     core.CorpusStore
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       *IngestConfig
	met       *metrics.Metrics
	log       zerolog.Logger
	jobs      chan string
}

package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

// Categories a corpus document can belong to, inferred from the storage key
// prefix (e.g. "registration/india.pdf" -> "registration").
var knownCategories = map[string]bool{
	"registration": true,
	"legal":        true,
	"tax":          true,
	"licensing":    true,
	"costs":        true,
}

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(store core.CorpusStore, obj core.ObjectClient, emb core.EmbeddingProvider, extractor core.DocumentExtractor, cfg *IngestConfig, met *metrics.Metrics, log zerolog.Logger) *DocumentIngestor {
	return &DocumentIngestor{
		store: store, obj: obj, embedder: emb, extractor: extractor,
		cfg: cfg, met: met, log: log,
		jobs: make(chan string, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel. Each
// worker drives the extract -> chunk -> embed -> persist pipeline for one
// document at a time.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.log.Debug().Int("worker", w).Msg("ingestion worker shutting down")
					return
				case docID := <-i.jobs:
					i.log.Info().Int("worker", w).Str("document_id", docID).Msg("processing document")

					if err := i.processOne(ctx, docID); err != nil {
						i.log.Error().Err(err).Str("document_id", docID).Msg("document ingestion failed")
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a document ID for ingestion. Returns false without
// blocking when the queue is full so callers can shed load.
func (i *DocumentIngestor) Enqueue(docID string) bool {
	select {
	case i.jobs <- docID:
		return true
	default:
		return false
	}
}

// processOne streams, chunks, embeds and persists a single document.
func (i *DocumentIngestor) processOne(ctx context.Context, docID string) error {
	proctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	doc, err := i.store.GetDocumentByID(proctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", docID)
	}

	_ = i.store.UpdateDocumentStatus(proctx, docID, "processing")

	bucket, key := ParseS3URL(doc.StorageURL)

	data, err := i.obj.GetFile(proctx, bucket, key)
	if err != nil {
		_ = i.store.UpdateDocumentStatus(proctx, docID, "failed")
		i.met.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("get object: %w", err)
	}

	g, gctx := errgroup.WithContext(proctx)

	fragCh, err := i.extractor.ExtractText(gctx, g, data, doc.ContentType)
	if err != nil {
		_ = i.store.UpdateDocumentStatus(proctx, docID, "failed")
		i.met.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("extract: %w", err)
	}

	chunkCh := i.streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	g.Go(func() error {
		return i.embedAndPersist(gctx, doc, chunkCh, i.cfg.BatchSize)
	})

	if err := g.Wait(); err != nil {
		_ = i.store.UpdateDocumentStatus(proctx, docID, "failed")
		i.met.DocumentsIngestedTotal.WithLabelValues("failed").Inc()
		return err
	}

	i.met.DocumentsIngestedTotal.WithLabelValues("ready").Inc()
	return i.store.UpdateDocumentStatus(proctx, docID, "ready")
}

// embedAndPersist drains the chunk channel in batches, embeds each batch and
// writes the resulting corpus rows.
func (i *DocumentIngestor) embedAndPersist(ctx context.Context, doc *models.Document, chunks <-chan chunk, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 16
	}

	batch := make([]chunk, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		rows := make([]models.DocumentChunk, len(batch))
		now := time.Now()
		for j, c := range batch {
			row := models.DocumentChunk{
				ID:           uuid.NewString(),
				DocumentID:   doc.ID,
				Text:         c.Text,
				RelativePath: doc.FileName,
				Category:     doc.Category,
				Position:     c.Pos,
				TokenCount:   c.TokenCnt,
				CreatedAt:    now,
			}
			if j < len(vecs) {
				row.Embedding = vecs[j]
			}
			rows[j] = row
		}

		if err := i.store.InsertDocumentChunks(ctx, rows); err != nil {
			return fmt.Errorf("persist chunks: %w", err)
		}
		i.met.ChunksStoredTotal.Add(float64(len(rows)))
		batch = batch[:0]
		return nil
	}

	for c := range chunks {
		batch = append(batch, c)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// CategoryFromKey infers the corpus category from a storage key prefix.
func CategoryFromKey(key string) string {
	prefix, _, found := strings.Cut(key, "/")
	if found && knownCategories[strings.ToLower(prefix)] {
		return strings.ToLower(prefix)
	}
	return "general"
}

// ParseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func ParseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}

// Package retrieval provides the reference-chunk lookup used to ground
// prompts. Two interchangeable strategies exist behind one interface; the
// active one is chosen at configuration time, not per call.
package retrieval

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/models"
)

// Retriever fetches up to limit reference chunks for a query. The contract
// is fail-soft: any backend failure yields an empty slice, logged and
// counted, never an error to the caller. The turn proceeds without context.
type Retriever interface {
	Fetch(ctx context.Context, query string, limit int) []models.RetrievedChunk
}

// New selects the retrieval strategy from config.
func New(cfg *config.Config, store core.CorpusStore, embedder core.EmbeddingProvider, met *metrics.Metrics, log zerolog.Logger) Retriever {
	if cfg.RetrieverMode == config.RetrieverSemantic {
		return NewSemanticRetriever(store, embedder, met, log)
	}
	return NewKeywordRetriever(store, met, log)
}

// KeywordRetriever matches the raw query as a literal substring against the
// corpus. Ordering follows the underlying table order.
type KeywordRetriever struct {
	store core.CorpusStore
	met   *metrics.Metrics
	log   zerolog.Logger
}

func NewKeywordRetriever(store core.CorpusStore, met *metrics.Metrics, log zerolog.Logger) *KeywordRetriever {
	return &KeywordRetriever{store: store, met: met, log: log}
}

func (r *KeywordRetriever) Fetch(ctx context.Context, query string, limit int) []models.RetrievedChunk {
	r.met.RetrievalQueriesTotal.WithLabelValues(config.RetrieverKeyword).Inc()

	chunks, err := r.store.SubstringSearchChunks(ctx, query, limit)
	if err != nil {
		r.met.RetrievalFailuresTotal.WithLabelValues(config.RetrieverKeyword).Inc()
		r.log.Error().Err(err).Str("query", query).Msg("keyword retrieval failed")
		return nil
	}
	r.met.RetrievalChunksTotal.Add(float64(len(chunks)))
	return chunks
}

// SemanticRetriever embeds the query and delegates ranking to the vector
// store. Results are memoized by exact query string for the process
// lifetime, mirroring the cached managed-search call it replaces.
type SemanticRetriever struct {
	store    core.CorpusStore
	embedder core.EmbeddingProvider
	met      *metrics.Metrics
	log      zerolog.Logger

	mu    sync.Mutex
	cache map[string][]models.RetrievedChunk
}

func NewSemanticRetriever(store core.CorpusStore, embedder core.EmbeddingProvider, met *metrics.Metrics, log zerolog.Logger) *SemanticRetriever {
	return &SemanticRetriever{
		store:    store,
		embedder: embedder,
		met:      met,
		log:      log,
		cache:    make(map[string][]models.RetrievedChunk),
	}
}

func (r *SemanticRetriever) Fetch(ctx context.Context, query string, limit int) []models.RetrievedChunk {
	r.mu.Lock()
	if cached, ok := r.cache[query]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	r.met.RetrievalQueriesTotal.WithLabelValues(config.RetrieverSemantic).Inc()

	vecs, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		r.met.RetrievalFailuresTotal.WithLabelValues(config.RetrieverSemantic).Inc()
		r.log.Error().Err(err).Str("query", query).Msg("query embedding failed")
		return nil
	}

	chunks, err := r.store.VectorSearchChunks(ctx, vecs[0], limit)
	if err != nil {
		r.met.RetrievalFailuresTotal.WithLabelValues(config.RetrieverSemantic).Inc()
		r.log.Error().Err(err).Str("query", query).Msg("semantic retrieval failed")
		return nil
	}
	r.met.RetrievalChunksTotal.Add(float64(len(chunks)))

	// Only successful lookups are memoized so a transient failure does not
	// pin an empty result for the rest of the process.
	r.mu.Lock()
	r.cache[query] = chunks
	r.mu.Unlock()

	return chunks
}

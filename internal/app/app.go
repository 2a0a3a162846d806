package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	db "github.com/Hannan2004/RAG-N-ROLL/internal/core/database"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core/ingestion_engine"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core/llm"
	objectclient "github.com/Hannan2004/RAG-N-ROLL/internal/core/object-client"
	"github.com/Hannan2004/RAG-N-ROLL/internal/logger"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/retrieval"
	"github.com/Hannan2004/RAG-N-ROLL/internal/services"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

type App struct {
	Corpus   core.CorpusStore
	Objects  core.ObjectClient
	Sessions *session.Store
	Ingestor *ingestion_engine.DocumentIngestor
	Server   *Server
	Log      zerolog.Logger

	llmClient *llm.GeminiLLM
	embedder  *llm.GeminiEmbedder
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	met := metrics.New()

	corpus, err := db.NewCorpusClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("corpus store: %w", err)
	}
	log.Info().Msg("database initialized and ready")

	objClient, err := objectclient.NewS3Client(appCtx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("object client: %w", err)
	}

	embedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
	}

	extractor := ingestion_engine.NewDocconvExtractor(false, log)

	ingCfg := &ingestion_engine.IngestConfig{
		TargetTokens:  100,
		OverlapTokens: 5,
		BatchSize:     16,
	}
	ingestor := ingestion_engine.NewDocumentIngestor(corpus, objClient, embedder, extractor, ingCfg, met, log)
	ingestor.Start(ctx, 2)

	sessions := session.NewStore()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.ExpireIdle(cfg.SessionTTL); removed > 0 {
					log.Info().Int("removed", removed).Msg("expired idle sessions")
				}
				met.ActiveSessions.Set(float64(sessions.Count()))
			}
		}
	}()

	retriever := retrieval.New(cfg, corpus, embedder, met, log)
	builder := services.NewPromptBuilder(cfg.SlideWindow)
	chatSvc := services.NewChatService(sessions, retriever, llmProvider, builder, cfg.NumChunks, met, log)
	typewriter := services.NewTypewriter(cfg.WordDelay, cfg.ParagraphDelay)

	server := NewServer(cfg, sessions, chatSvc, typewriter, corpus, objClient, ingestor, met, log)

	return &App{
		Corpus:    corpus,
		Objects:   objClient,
		Sessions:  sessions,
		Ingestor:  ingestor,
		Server:    server,
		Log:       log,
		llmClient: llmProvider,
		embedder:  embedder,
	}, nil
}

func (a *App) Close() {
	if a.Corpus != nil {
		_ = a.Corpus.Close()
	}
	if a.llmClient != nil {
		_ = a.llmClient.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

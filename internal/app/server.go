package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Hannan2004/RAG-N-ROLL/internal/api/handlers"
	appMiddleware "github.com/Hannan2004/RAG-N-ROLL/internal/api/middlewares"
	"github.com/Hannan2004/RAG-N-ROLL/internal/config"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core"
	"github.com/Hannan2004/RAG-N-ROLL/internal/core/ingestion_engine"
	"github.com/Hannan2004/RAG-N-ROLL/internal/metrics"
	"github.com/Hannan2004/RAG-N-ROLL/internal/services"
	"github.com/Hannan2004/RAG-N-ROLL/internal/session"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, sessions *session.Store, chat *services.ChatService, typewriter *services.Typewriter, corpus core.CorpusStore, obj core.ObjectClient, ingestor *ingestion_engine.DocumentIngestor, met *metrics.Metrics, log zerolog.Logger) *Server {
	sessionHandler := handlers.NewSessionHandler(sessions, cfg.JWTSecret, met)
	chatHandler := handlers.NewChatHandler(chat, typewriter)
	docHandler := handlers.NewDocumentHandler(corpus, obj, ingestor, cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Serve the chat page from the web directory
	fileServer := http.FileServer(http.Dir("./web"))
	r.Handle("/*", fileServer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoint: session creation issues the bearer token
		api.Post("/session", sessionHandler.Create)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.SessionMiddleware(cfg.JWTSecret, sessions.Exists))

			protected.Get("/session/context", sessionHandler.GetContext)
			protected.Put("/session/context", sessionHandler.SetContext)

			protected.Post("/chat/ask", chatHandler.Ask)
			protected.Post("/chat/feedback", chatHandler.Feedback)
			protected.Post("/chat/clear", chatHandler.Clear)
			protected.Get("/chat/history", chatHandler.History)

			protected.Post("/documents/upload", docHandler.Upload)
			protected.Get("/documents", docHandler.List)
			protected.Delete("/documents/{id}", docHandler.Delete)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/dgrange/loanpipe/internal/config"
	"github.com/dgrange/loanpipe/internal/extract"
	"github.com/dgrange/loanpipe/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for loanpipe.
type Server struct {
	router   chi.Router
	svc      *pipeline.Service
	llmStats *extract.LLMStats
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. llmStats may be nil
// when no extraction model is configured.
func NewServer(svc *pipeline.Service, llmStats *extract.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:      svc,
		llmStats: llmStats,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/packages", s.handleSubmitPackage)
		r.Get("/api/packages/{jobID}", s.handleJobStatus)
		r.Get("/api/packages/{jobID}/result", s.handleJobResult)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

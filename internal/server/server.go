package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/export"
	"github.com/ziadkadry99/sitesmith/internal/persist"
	"github.com/ziadkadry99/sitesmith/internal/pipeline"
	"github.com/ziadkadry99/sitesmith/internal/progress"
)

// Config holds server configuration.
type Config struct {
	Port            int
	AllowAll        bool // allow all CORS origins (dev mode)
	DefaultLanguage string
	MaxImageCount   int
}

// Generator runs one generation. *pipeline.Pipeline satisfies it.
type Generator interface {
	GenerateWithReporter(ctx context.Context, req document.GenerationRequest, extra progress.Reporter) (*document.Document, *pipeline.Stats, error)
}

// Deps are the collaborators the editor surface drives.
type Deps struct {
	Session   *document.Session
	Generator Generator
	Assembler *export.Assembler
	Autosaver *persist.Autosaver
	Hub       *progress.Hub
	Logger    zerolog.Logger
}

// Server is the local editor: it serves the editor page, the sandboxed
// preview and the JSON API over the single session.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server

	// baseCtx outlives requests so background generations survive the
	// client disconnecting; it is cancelled on Shutdown.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu        sync.Mutex
	lastError string
	lastStats *pipeline.Stats
	runs      sync.WaitGroup
}

// New creates the server and wires session changes to the autosaver.
func New(cfg Config, deps Deps) *Server {
	if deps.Hub == nil {
		deps.Hub = progress.NewHub(0)
	}
	if deps.Assembler == nil {
		deps.Assembler = export.NewAssembler(nil, deps.Logger)
	}
	s := &Server{cfg: cfg, deps: deps}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())
	if deps.Autosaver != nil {
		deps.Session.OnChange(deps.Autosaver.Schedule)
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.deps.Logger))
	r.Use(middleware.Recoverer)

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"generating": s.deps.Session.Generating(),
		})
	})

	// Long-running routes stay outside the request timeout.
	r.Post("/api/generate", s.handleGenerate)
	r.Get("/ws/progress", s.handleProgress)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/", serveIndex)
		r.Get("/preview", s.handlePreview)

		r.Get("/api/generate/status", s.handleStatus)
		r.Get("/api/document", s.handleGetDocument)
		r.Put("/api/document", s.handleUpdateDocument)
		r.Delete("/api/document", s.handleDeleteDocument)

		r.Get("/api/history", s.handleHistory)
		r.Post("/api/history/undo", s.handleUndo)
		r.Post("/api/history/redo", s.handleRedo)

		r.Get("/api/source/{kind}", s.handleSource)
		r.Get("/api/images", s.handleImages)
		r.Get("/api/export", s.handleExport)
	})

	return r
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.deps.Logger.Info().Str("addr", addr).Msg("sitesmith editor listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests, cancels running generations and
// flushes the autosaver.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.cancelBase()
	s.runs.Wait()
	if s.deps.Autosaver != nil {
		if ferr := s.deps.Autosaver.Stop(ctx); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

func (s *Server) setOutcome(stats *pipeline.Stats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStats = stats
	s.lastError = ""
	if err != nil {
		s.lastError = userMessage(err)
	}
}

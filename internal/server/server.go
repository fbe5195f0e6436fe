// Package server exposes analysis over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/ppiankov/faultline/internal/llm"
	"github.com/ppiankov/faultline/internal/logging"
	"github.com/ppiankov/faultline/internal/model"
	"github.com/ppiankov/faultline/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer runs one analysis, publishing snapshots to pub
type Analyzer interface {
	Analyze(ctx context.Context, in pipeline.Input, pub *pipeline.Publisher) (*model.RunState, error)
}

// Options configures the server
type Options struct {
	Provider       string
	Model          string
	MaxResults     int           // Default result count of /api/search
	AnalyzeTimeout time.Duration // Upper bound of one analysis
	AllowedOrigins []string
}

// Server serves the faultline API
type Server struct {
	router   *chi.Mux
	analyzer Analyzer
	searcher llm.Searcher
	opts     Options
	logger   *slog.Logger
	validate *validator.Validate
	upgrader websocket.Upgrader
}

// AnalyzeRequest is the body of an analysis request
type AnalyzeRequest struct {
	Text  string       `json:"text"`
	Image *model.Image `json:"image,omitempty"`
	Mode  string       `json:"mode,omitempty" validate:"omitempty,oneof=quick standard deep"`
}

// SearchItem is one /api/search result
type SearchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// New creates a server. searcher may be nil, which disables /api/search.
func New(analyzer Analyzer, searcher llm.Searcher, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 4
	}
	if opts.AnalyzeTimeout <= 0 {
		opts.AnalyzeTimeout = 10 * time.Minute
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	s := &Server{
		router:   chi.NewRouter(),
		analyzer: analyzer,
		searcher: searcher,
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyze/stream", s.handleStream)
		r.Get("/search", s.handleSearch)
	})
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.opts.Provider,
		"model":    s.opts.Model,
		"search":   s.searcher != nil,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in, err := s.toInput(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.AnalyzeTimeout)
	defer cancel()

	state, err := s.analyzer.Analyze(ctx, in, nil)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, state)
	case state != nil:
		// Failed runs still carry their final state
		respondJSON(w, http.StatusUnprocessableEntity, state)
	default:
		respondError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	if s.searcher == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	num := s.opts.MaxResults
	if raw := r.URL.Query().Get("num"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 10 {
			respondError(w, http.StatusBadRequest, "num must be between 1 and 10")
			return
		}
		num = n
	}

	items := []SearchItem{}
	for _, ev := range s.searcher.Search(r.Context(), query, num) {
		items = append(items, SearchItem{Title: ev.Title, Link: ev.URI, Snippet: ev.Snippet})
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

const maxRequestBytes = 16 << 20

var errEmptyRequest = errors.New("text or image is required")

// toInput validates a request and converts it to a pipeline input
func (s *Server) toInput(req AnalyzeRequest) (pipeline.Input, error) {
	if err := s.validate.Struct(req); err != nil {
		return pipeline.Input{}, err
	}

	in := pipeline.Input{Text: strings.TrimSpace(req.Text), Mode: req.Mode, Source: "api"}
	if req.Image != nil && len(req.Image.Data) > 0 {
		img, err := pipeline.DecodeImage(req.Image.Data)
		if err != nil {
			return pipeline.Input{}, err
		}
		in.Image = img
	}
	if err := in.Validate(); err != nil {
		return pipeline.Input{}, errEmptyRequest
	}
	return in, nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

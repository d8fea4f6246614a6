package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"corpusqa/internal/domain"
	"corpusqa/internal/usecase"
)

// Answerer produces an answer for a query, optionally continuing an
// existing conversation.
type Answerer interface {
	Answer(ctx context.Context, query, convID string) (domain.Answer, string)
}

// Indexer exposes the retrieval index operations the HTTP surface needs.
type Indexer interface {
	EnsureFresh(ctx context.Context) error
	Search(ctx context.Context, query string, topK int, threshold float64) ([]string, error)
	State() usecase.State
	ChunkCount() int
}

// Server is the HTTP front for the corpus QA service.
type Server struct {
	answerer  Answerer
	indexer   Indexer
	topK      int
	threshold float64
	log       logrus.FieldLogger
	router    chi.Router
}

// New creates the HTTP server with all routes registered.
func New(answerer Answerer, indexer Indexer, topK int, threshold float64, log logrus.FieldLogger) *Server {
	s := &Server{
		answerer:  answerer,
		indexer:   indexer,
		topK:      topK,
		threshold: threshold,
		log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Post("/search", s.handleSearch)
	r.Post("/reindex", s.handleReindex)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Status         string   `json:"status"`
	Response       string   `json:"response"`
	Reasoning      string   `json:"reasoning,omitempty"`
	Context        []string `json:"context,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	answer, convID := s.answerer.Answer(r.Context(), req.Message, req.ConversationID)

	s.writeJSON(w, http.StatusOK, chatResponse{
		Status:         answer.Status,
		Response:       answer.Response,
		Reasoning:      answer.Reasoning,
		Context:        answer.Context,
		ConversationID: convID,
	})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResponse struct {
	Results []string `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	topK := s.topK
	if req.TopK > 0 {
		topK = req.TopK
	}

	results, err := s.indexer.Search(r.Context(), req.Query, topK, s.threshold)
	if err != nil {
		if errors.Is(err, domain.ErrNoRelevantContext) {
			s.writeJSON(w, http.StatusOK, searchResponse{Results: []string{}})
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

type reindexResponse struct {
	State  string `json:"state"`
	Chunks int    `json:"chunks"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.EnsureFresh(r.Context()); err != nil {
		s.log.WithError(err).Error("reindex failed")
		s.writeError(w, http.StatusInternalServerError, "reindex failed")
		return
	}

	s.writeJSON(w, http.StatusOK, reindexResponse{
		State:  string(s.indexer.State()),
		Chunks: s.indexer.ChunkCount(),
	})
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Chunks int    `json:"chunks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		State:  string(s.indexer.State()),
		Chunks: s.indexer.ChunkCount(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

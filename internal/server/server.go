// Package server exposes the research pipeline over HTTP: POST /research
// runs a query and returns the populated state as JSON, GET /health is a
// liveness probe.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/equityscribe/equityscribe/internal/logger"
	"github.com/equityscribe/equityscribe/internal/models"
)

// Researcher runs one research request. *pipeline.Pipeline satisfies it;
// tests use a stub.
type Researcher interface {
	Run(ctx context.Context, query string, style models.InvestmentStyle) (models.ResearchState, error)
}

type Server struct {
	researcher Researcher
	log        *zap.SugaredLogger
}

func New(researcher Researcher) *Server {
	return &Server{
		researcher: researcher,
		log:        logger.Named("server"),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/research", s.handleResearch)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ListenAndServe blocks serving requests until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Infow("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type researchRequest struct {
	Query string `json:"query"`
	Style string `json:"style"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}

	style := models.ParseStyle(req.Style)
	state, err := s.researcher.Run(r.Context(), req.Query, style)
	if err != nil {
		s.log.Errorw("research request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

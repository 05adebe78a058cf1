// Package server exposes run management over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/TobiSchelling/PaperDigest/internal/database"
	"github.com/TobiSchelling/PaperDigest/internal/paper"
	"github.com/TobiSchelling/PaperDigest/internal/pipeline"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
	maxBodyBytes     = 1 << 20
)

// Starter launches a pipeline run in the background.
type Starter interface {
	Start(req pipeline.Request) (string, error)
}

// Server is the HTTP API server.
type Server struct {
	db     *database.DB
	runs   Starter
	router chi.Router
}

// New creates a new Server.
func New(db *database.DB, runs Starter) *Server {
	s := &Server{db: db, runs: runs, router: chi.NewRouter()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleStartRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	// Older clients post to /run.
	s.router.Post("/run", s.handleStartRun)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}
	if req.TopK < 0 || req.MaxResults < 0 {
		writeError(w, http.StatusBadRequest, "top_k and max_results must not be negative")
		return
	}

	id, err := s.runs.Start(req)
	if err != nil {
		log.Error().Err(err).Msg("starting run")
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": id, "status": string(database.RunQueued)})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	f := database.RunFilter{Limit: defaultListLimit}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = database.RunStatus(v)
		if !f.Status.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", v))
			return
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		f.Limit = min(n, maxListLimit)
	}

	runs, err := s.db.ListRuns(f)
	if err != nil {
		log.Error().Err(err).Msg("listing runs")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type runDetail struct {
	database.Run
	Papers    []database.RunPaper `json:"papers"`
	Summaries []paper.Summary     `json:"summaries"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.db.GetRun(id)
	if err != nil {
		log.Error().Err(err).Str("run", id).Msg("loading run")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run_id not found")
		return
	}

	detail := runDetail{Run: *run, Papers: []database.RunPaper{}, Summaries: []paper.Summary{}}
	if papers, err := s.db.GetRunPapers(id); err == nil && papers != nil {
		detail.Papers = papers
	}
	if sums, err := s.db.GetRunSummaries(id); err == nil && sums != nil {
		detail.Summaries = sums
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// Serve listens on 127.0.0.1:port until ctx is cancelled.
func Serve(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", "http://"+srv.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

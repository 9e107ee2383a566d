package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/enrich"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Job list paging.
const (
	DefaultJobLimit = 25
	MaxJobLimit     = 100
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// JobRunner runs a pending job synchronously.
type JobRunner interface {
	RunJob(ctx context.Context, id string) (*enrich.Summary, error)
}

// Server serves the medprice HTTP API.
type Server struct {
	Search medprice.SearchService
	Jobs   medprice.JobReader
	Runner JobRunner

	// Logger receives internal errors. Access logs go through chi's
	// middleware.Logger.
	Logger *slog.Logger

	server *http.Server
}

// NewServer returns a new Server.
func NewServer(search medprice.SearchService, jobs medprice.JobReader, runner JobRunner) *Server {
	return &Server{Search: search, Jobs: jobs, Runner: runner}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Post("/jobs/{id}/run", s.handleRunJob)
		r.Get("/entries/{id}", s.handleGetEntry)
	})

	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- s.server.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeErr(w, r, medprice.Errorf(medprice.EINVALID, "missing query parameter q"))
		return
	}

	result, err := s.Search.Search(r.Context(), q)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	report, err := s.Search.JobStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := medprice.JobFilter{Limit: DefaultJobLimit}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := medprice.JobStatus(raw)
		if !status.Valid() {
			s.writeErr(w, r, medprice.Errorf(medprice.EINVALID, "invalid status: %s", raw))
			return
		}
		filter.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			s.writeErr(w, r, medprice.Errorf(medprice.EINVALID, "invalid limit: %s", raw))
			return
		}
		filter.Limit = min(value, MaxJobLimit)
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			s.writeErr(w, r, medprice.Errorf(medprice.EINVALID, "invalid offset: %s", raw))
			return
		}
		filter.Offset = value
	}

	jobs, err := s.Jobs.FindJobs(r.Context(), filter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*medprice.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Runner.RunJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	detail, err := s.Search.Entry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// writeErr writes an application error with the HTTP status for its code.
// Internal errors are logged and reported with a generic message.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := medprice.ErrorCode(err)
	if code == medprice.EINTERNAL && s.Logger != nil {
		s.Logger.Error("http error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	writeJSON(w, ErrorStatusCode(code), map[string]any{
		"code":  code,
		"error": medprice.ErrorMessage(err),
	})
}

// ErrorStatusCode maps an application error code to an HTTP status.
func ErrorStatusCode(code string) int {
	switch code {
	case medprice.EINVALID:
		return http.StatusBadRequest
	case medprice.ENOTFOUND:
		return http.StatusNotFound
	case medprice.ECONFLICT:
		return http.StatusConflict
	case medprice.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

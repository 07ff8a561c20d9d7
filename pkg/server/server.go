// Package server serves a data directory to kudsight sessions over HTTP.
//
// Routes:
//
//	GET       /list-json     dataset names, newest first
//	GET|HEAD  /out/{name}    a dataset, overlay or diagram asset
//	POST      /save-pos      store a layout: {"filename": ..., "data": {...}}
//	POST      /upload        analyze folderPath and return the new list
//	GET       /healthz       liveness
//	GET       /metrics       Prometheus metrics, when configured
//
// The mutating routes answer with a status envelope; failures are reported
// as {"status":"error","message":...} with status 200 so clients can show
// the message as is.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kudsight/pkg/backend"
	"github.com/matzehuels/kudsight/pkg/diagram"
	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/store"
)

// maxRequestBodySize limits POST bodies.
const maxRequestBodySize = 8 << 20

// Options configures a Server.
type Options struct {
	Logger *log.Logger

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// Diagrams renders a PNG for every dataset an analysis produced. Nil
	// leaves diagrams to the analyzer.
	Diagrams *diagram.Renderer
}

// Server is the HTTP front of a [backend.Local].
type Server struct {
	backend  *backend.Local
	logger   *log.Logger
	diagrams *diagram.Renderer
	router   chi.Router
}

// New creates a server over b.
func New(b *backend.Local, opts Options) *Server {
	s := &Server{backend: b, logger: opts.Logger, diagrams: opts.Diagrams}
	if s.logger == nil {
		s.logger = log.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}
	r.Get("/list-json", s.handleList)
	r.Get("/out/{name}", s.handleOut)
	r.Head("/out/{name}", s.handleOut)
	r.Post("/save-pos", s.handleSavePos)
	r.Post("/upload", s.handleUpload)

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.backend.ListDatasets(r.Context())
	if err != nil {
		s.logger.Error("list datasets", "error", err)
		http.Error(w, "list failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleOut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := errors.ValidateResourceName(name); err != nil {
		http.Error(w, errors.UserMessage(err), http.StatusBadRequest)
		return
	}
	data, err := s.backend.Store().Read(r.Context(), name)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("read resource", "name", name, "error", err)
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleSavePos(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req backend.SavePosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, backend.Response{Status: backend.StatusError, Message: backend.MsgInvalidPayload})
		return
	}
	if err := s.backend.SubmitOverlay(r.Context(), req.Filename, req.Data); err != nil {
		s.logger.Warn("save layout", "filename", req.Filename, "error", err)
		writeStatus(w, backend.Response{Status: backend.StatusError, Message: errors.UserMessage(err)})
		return
	}
	s.logger.Debug("saved layout", "filename", req.Filename, "positions", len(req.Data))
	writeStatus(w, backend.Response{Status: backend.StatusOK})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	folder := r.FormValue("folderPath")

	ctx := r.Context()
	before, _ := s.backend.ListDatasets(ctx)
	files, err := s.backend.Analyze(ctx, folder)
	if err != nil {
		s.logger.Warn("analysis failed", "folder", folder, "error", err)
		writeStatus(w, backend.Response{Status: backend.StatusError, Message: errors.UserMessage(err)})
		return
	}
	s.renderNew(ctx, before, files)
	writeStatus(w, backend.Response{Status: backend.StatusOK, Files: files})
}

// renderNew writes diagrams for datasets that appeared during an analysis
// and have none yet.
func (s *Server) renderNew(ctx context.Context, before, after []string) {
	if s.diagrams == nil {
		return
	}
	seen := make(map[string]struct{}, len(before))
	for _, n := range before {
		seen[n] = struct{}{}
	}
	st := s.backend.Store()
	for _, n := range after {
		if _, ok := seen[n]; ok {
			continue
		}
		if ok, _ := st.Exists(ctx, graph.DiagramName(n)); ok {
			continue
		}
		if _, err := s.diagrams.Generate(ctx, st, n, diagram.Options{}); err != nil {
			s.logger.Warn("diagram generation failed", "dataset", n, "error", err)
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeStatus(w http.ResponseWriter, resp backend.Response) {
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

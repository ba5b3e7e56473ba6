// Package inspect serves a debug HTTP endpoint exposing the live state of
// a recording or playback session: the NodeIdMap's tracked node count and
// the AssetRegistry's per-asset resolution state. It follows a
// NewServer/Run shape (Run shuts the server down when its context is
// cancelled) and mounts its routes with
// go-chi/chi, since this is a small read-only diagnostic surface rather
// than a session protocol endpoint.
package inspect

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/nodeid"
)

// Source supplies the live state inspect reports. A RecordingClient or
// PagePlayer-owning caller implements this (or hands inspect the fields
// it owns directly via NewServer's arguments).
type Source struct {
	IDs      *nodeid.Map
	Registry *asset.Registry
}

// Server is a small read-only HTTP server for debugging a single
// recording/playback process in place. It is not part of the wire
// protocol; point a browser or curl at it during development.
type Server struct {
	addr   string
	source Source
	log    *slog.Logger

	httpServer *http.Server
}

// NewServer creates a Server listening on addr, reporting source's state.
func NewServer(addr string, source Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		source: source,
		log:    logger.With("component", "inspect_server"),
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/nodes", s.handleNodes)
	r.Get("/assets", s.handleAssets)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("inspect server starting", "address", s.addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type nodesResponse struct {
	TrackedNodes int `json:"tracked_nodes"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := nodesResponse{}
	if s.source.IDs != nil {
		resp.TrackedNodes = s.source.IDs.Len()
	}
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var entries []asset.EntrySummary
	if s.source.Registry != nil {
		entries = s.source.Registry.Snapshot()
	}
	json.NewEncoder(w).Encode(entries)
}

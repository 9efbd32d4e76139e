// Package api exposes the HTTP surface: scan control, scan history,
// ad-hoc counts, and status.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nforsman/scandir/internal/api/handlers"
	"github.com/nforsman/scandir/internal/config"
	"github.com/nforsman/scandir/internal/scans"
	"github.com/nforsman/scandir/internal/scheduler"
)

// Server holds the HTTP server and all handler dependencies.
type Server struct {
	addr string
	srv  *http.Server
}

// New wires all routes and returns a Server ready to Run.
func New(
	addr string,
	db *sql.DB,
	cfg *config.Config,
	mgr *scans.Manager,
	sched *scheduler.Scheduler,
	version string,
) *Server {
	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: newRouter(db, cfg, mgr, sched, version)},
	}
}

func newRouter(
	db *sql.DB,
	cfg *config.Config,
	mgr *scans.Manager,
	sched *scheduler.Scheduler,
	version string,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{DB: db, Manager: mgr, Sched: sched, Version: version}
	scansH := &handlers.ScansHandler{DB: db, Manager: mgr}
	countH := &handlers.CountHandler{Cfg: cfg}
	statsH := &handlers.StatsHandler{DB: db}
	configH := &handlers.ConfigHandler{Cfg: cfg}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Post("/scans", scansH.Create)
		r.Get("/scans", scansH.List)
		r.Get("/scans/{id}/entries", scansH.Entries)
		r.Get("/scans/{id}/errors", scansH.Errors)
		r.Get("/scans/{id}", scansH.Get)
		r.Delete("/scans/current", scansH.Cancel)

		r.Get("/count", countH.ServeHTTP)

		r.Get("/stats", statsH.ServeHTTP)

		r.Get("/config", configH.Get)
	})

	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		return s.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

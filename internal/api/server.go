package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foldermap/foldermap/internal/api/handlers"
	"github.com/foldermap/foldermap/internal/config"
	"github.com/foldermap/foldermap/internal/scan"
	"github.com/foldermap/foldermap/internal/scheduler"
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
	mgr *scan.Manager,
	tracker *scan.Tracker,
	sched *scheduler.Scheduler,
	version string,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	statusH := &handlers.StatusHandler{Tracker: tracker, Sched: sched, Paused: cfg.ScanPaused, Version: version}
	scansH := &handlers.ScansHandler{DB: db, Manager: mgr, DefaultRoot: cfg.DefaultRoot}
	treemapH := &handlers.TreemapHandler{DB: db, Tracker: tracker, DefaultRectangles: cfg.MaxRectangles}
	presetsH := &handlers.PresetsHandler{DB: db}
	openH := &handlers.OpenHandler{Tracker: tracker}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", statusH.ServeHTTP)

		r.Post("/scans", scansH.Create)
		r.Get("/scans", scansH.List)
		r.Delete("/scans/current", scansH.Cancel)

		r.Get("/treemap", treemapH.ServeHTTP)

		r.Get("/presets", presetsH.List)
		r.Post("/presets", presetsH.Create)
		r.Delete("/presets/{id}", presetsH.Delete)

		r.Post("/open", openH.ServeHTTP)
	})

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: r},
	}
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

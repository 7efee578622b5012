package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"timeframechart/internal/config"
	"timeframechart/internal/logger"
	"timeframechart/internal/pages"
	"timeframechart/internal/storage"
	"timeframechart/internal/view"
)

// Server represents the main application server
type Server struct {
	Config  *config.Config
	Storage storage.StorageClient
	Views   *view.Registry
	Pages   *pages.Builder
	Files   *FileManager

	log *logger.Logger
	now func() time.Time
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store storage.StorageClient, views *view.Registry, builder *pages.Builder) *Server {
	s := &Server{
		Config:  cfg,
		Storage: store,
		Views:   views,
		Pages:   builder,
		log:     logger.Component("server"),
		now:     time.Now,
	}
	s.Files = NewFileManager(s)
	return s
}

// SetupRoutes configures HTTP routes for the server
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(s.Config, s.log) {
		r.Use(mw)
	}

	// Views fetch the data file through this router from the loopback
	// address, so it is served outside the per-IP limit.
	r.Get("/data.json", s.HandleDataFile)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.Config))

		r.Get("/", s.HandleRoot)
		r.Get("/health", s.HandleHealth)
		r.Get("/exports", s.HandleListExports)
		r.Get("/exports/*", s.HandleExportFile)

		r.Route("/views/{id}", func(r chi.Router) {
			r.Get("/", s.HandleViewState)
			r.Post("/timeframe/{tf}", s.HandleTimeframe)
			r.Get("/points/{index}", s.HandlePoint)
			r.Get("/export", s.HandleExport)
			r.Post("/close", s.HandleClose)
		})
	})

	return r
}

// Close cleans up server resources
func (s *Server) Close() error {
	s.Views.CloseAll()
	if s.Storage != nil {
		return s.Storage.Close()
	}
	return nil
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"timeframechart/internal/charts"
	"timeframechart/internal/config"
	"timeframechart/internal/logger"
	"timeframechart/internal/models"
	"timeframechart/internal/storage"
	"timeframechart/internal/view"
)

type timeframeResponse struct {
	Timeframe models.Timeframe       `json:"timeframe"`
	Axis      charts.AxisConfig      `json:"axis"`
	Option    map[string]interface{} `json:"option"`
}

type pointResponse struct {
	models.PointSelection
	Message string `json:"message"`
}

type inlineExportResponse struct {
	Filename string `json:"filename"`
	DataURI  string `json:"data_uri"`
}

// HandleRoot mounts a new view, performs its load and serves the chart page
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	m := s.Views.Mount()
	m.Load(r.Context())

	page, err := s.Pages.Build(m)
	if err != nil {
		s.log.Error("failed to build page", err, logger.Fields{"view_id": m.ID()})
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(page)
}

// HandleHealth provides health check endpoint
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   config.GetVersion(),
		"views":     s.Views.Len(),
		"checks": map[string]string{
			"storage": s.Config.StorageMode,
			"config":  "ok",
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// HandleDataFile serves the data source file from storage
func (s *Server) HandleDataFile(w http.ResponseWriter, r *http.Request) {
	exists, err := s.Files.DataFileExists(r.Context())
	if err != nil {
		s.log.Error("failed to check data file", err)
		writeError(w, http.StatusInternalServerError, "failed to read data file")
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "data file not found")
		return
	}

	data, err := s.Files.LoadDataFile(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "data file not found")
		return
	}
	if err != nil {
		s.log.Error("failed to serve data file", err)
		writeError(w, http.StatusInternalServerError, "failed to read data file")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// HandleListExports lists archived chart exports
func (s *Server) HandleListExports(w http.ResponseWriter, r *http.Request) {
	files, err := s.Files.ListExports(r.Context())
	if err != nil {
		s.log.Error("failed to list exports", err)
		writeError(w, http.StatusInternalServerError, "failed to list exports")
		return
	}
	if files == nil {
		files = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"exports": files})
}

// HandleExportFile serves one archived export
func (s *Server) HandleExportFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	data, err := s.Files.LoadExport(r.Context(), name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "export not found")
		return
	case errors.Is(err, storage.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, "invalid export path")
		return
	case err != nil:
		s.log.Error("failed to serve export", err, logger.Fields{"name": name})
		writeError(w, http.StatusInternalServerError, "failed to read export")
		return
	}

	w.Header().Set("Content-Type", storage.GetContentType(name))
	w.Write(data)
}

// viewFromRequest resolves the {id} route parameter; it writes a 404 when the view is unknown
func (s *Server) viewFromRequest(w http.ResponseWriter, r *http.Request) (*view.Model, bool) {
	m, err := s.Views.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return m, true
}

// HandleViewState returns a snapshot of a view
func (s *Server) HandleViewState(w http.ResponseWriter, r *http.Request) {
	m, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.State())
}

// HandleTimeframe switches the axis unit of a view
func (s *Server) HandleTimeframe(w http.ResponseWriter, r *http.Request) {
	m, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	tf, err := models.ParseTimeframe(chi.URLParam(r, "tf"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	axis, err := m.SetTimeframe(tf)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, timeframeResponse{
		Timeframe: axis.Timeframe,
		Axis:      axis,
		Option:    axis.EChartsOption(),
	})
}

// HandlePoint resolves a clicked point into a notification
func (s *Server) HandlePoint(w http.ResponseWriter, r *http.Request) {
	m, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid point index")
		return
	}

	sel, err := m.SelectPoint(index)
	if errors.Is(err, models.ErrPointOutOfRange) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, pointResponse{PointSelection: sel, Message: sel.Message()})
}

// HandleExport encodes the visible frame of a view as a PNG or JPG download
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	m, ok := s.viewFromRequest(w, r)
	if !ok {
		return
	}

	format, err := models.ParseImageFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := m.ExportImage(format, window)
	if err != nil {
		s.log.Error("export failed", err, logger.Fields{"view_id": m.ID(), "format": string(format)})
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if s.Config.ExportArchive {
		if path, err := s.Files.ArchiveExport(r.Context(), format, data); err != nil {
			s.log.Error("failed to archive export", err, logger.Fields{"view_id": m.ID()})
		} else {
			s.log.Info("export archived", logger.Fields{"view_id": m.ID(), "path": path})
		}
	}

	if isTruthy(r.URL.Query().Get("inline")) {
		writeJSON(w, http.StatusOK, inlineExportResponse{
			Filename: format.Filename(),
			DataURI:  charts.DataURI(format, data),
		})
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

// HandleClose tears a view down
func (s *Server) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.Views.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/models"
)

// JobCounter reports job registry occupancy for the health endpoint.
type JobCounter interface {
	CountByStatus() map[models.JobStatus]int
}

type APIHandler struct {
	logger     arbor.ILogger
	jobs       JobCounter
	configured bool
}

// NewAPIHandler creates the health/version handler. jobs may be nil.
func NewAPIHandler(jobs JobCounter, configured bool, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		logger:     logger,
		jobs:       jobs,
		configured: configured,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":             "ok",
		"backend_configured": h.configured,
	}
	if h.jobs != nil {
		resp["jobs"] = h.jobs.CountByStatus()
	}
	WriteJSON(w, http.StatusOK, resp)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}

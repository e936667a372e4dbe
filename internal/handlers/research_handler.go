package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/jobs"
	"github.com/ternarybob/stockscope/internal/models"
)

// DefaultStreamInterval is how often the job stream re-reads the job.
const DefaultStreamInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ResearchHandler serves research job submission, status, download and streaming.
type ResearchHandler struct {
	research       ResearchService
	jobs           JobReader
	logger         arbor.ILogger
	streamInterval time.Duration
}

// NewResearchHandler creates a research handler.
func NewResearchHandler(research ResearchService, jobs JobReader, logger arbor.ILogger) *ResearchHandler {
	return &ResearchHandler{
		research:       research,
		jobs:           jobs,
		logger:         logger,
		streamInterval: DefaultStreamInterval,
	}
}

// SubmitJobHandler handles POST /api/research/jobs.
func (h *ResearchHandler) SubmitJobHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ResearchRequest
	if err := DecodeAndValidate(w, r, &req, true); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := h.research.Submit(r.Context(), req)
	if errors.Is(err, common.ErrBackendNotConfigured) {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to submit research job")
		WriteError(w, http.StatusInternalServerError, "Failed to submit research job")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// GetJobHandler handles GET /api/research/jobs/{id}.
func (h *ResearchHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DownloadReportHandler handles GET /api/research/jobs/{id}/report.
func (h *ResearchHandler) DownloadReportHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if job.Status != models.JobStatusCompleted || job.Result == nil {
		WriteError(w, http.StatusConflict, "Job has not completed (status "+string(job.Status)+")")
		return
	}

	document, err := base64.StdEncoding.DecodeString(job.Result.PDFBase64)
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", job.ID).Msg("Stored report is not valid base64")
		WriteError(w, http.StatusInternalServerError, "Stored report is corrupt")
		return
	}
	WritePDF(w, job.Result.Filename, document)
}

// StreamJobHandler handles GET /api/research/jobs/{id}/stream. It upgrades to a
// websocket and pushes the job whenever it changes, closing after a terminal state.
func (h *ResearchHandler) StreamJobHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader goroutine: detects client disconnects.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	var last *models.Job
	for {
		if last == nil || jobChanged(last, job) {
			if err := conn.WriteJSON(job); err != nil {
				h.logger.Debug().Err(err).Str("job_id", job.ID).Msg("Job stream client gone")
				return
			}
			last = job
		}
		if job.Status.IsTerminal() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(job.Status)),
				time.Now().Add(time.Second))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err = h.jobs.GetJob(ctx, last.ID)
		if err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "job no longer available"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func (h *ResearchHandler) lookup(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return nil, false
	}

	job, err := h.jobs.GetJob(r.Context(), id)
	if errors.Is(err, jobs.ErrJobNotFound) {
		WriteError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to load job")
		WriteError(w, http.StatusInternalServerError, "Failed to load job")
		return nil, false
	}
	return job, true
}

func jobChanged(prev, next *models.Job) bool {
	return prev.Status != next.Status ||
		prev.Progress != next.Progress ||
		prev.Error != next.Error ||
		!prev.UpdatedAt.Equal(next.UpdatedAt)
}

type industryReportRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=100,dive,required"`
}

// IndustryReportHandler handles POST /api/industry/{industry}/report. Symbols whose
// document cannot be fetched get an error page instead of failing the request.
func (h *ResearchHandler) IndustryReportHandler(w http.ResponseWriter, r *http.Request) {
	industry := strings.TrimSpace(r.PathValue("industry"))
	if industry == "" {
		WriteError(w, http.StatusBadRequest, "Industry is required")
		return
	}

	var req industryReportRequest
	if err := DecodeAndValidate(w, r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	document, filename, err := h.research.BuildIndustryReport(r.Context(), industry, req.Symbols)
	if errors.Is(err, common.ErrBackendNotConfigured) {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("industry", industry).Msg("Failed to build industry report")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	WritePDF(w, filename, document)
}

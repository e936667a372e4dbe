package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Research jobs
	mux.HandleFunc("POST /api/research/jobs", s.app.ResearchHandler.SubmitJobHandler)
	mux.HandleFunc("GET /api/research/jobs/{id}", s.app.ResearchHandler.GetJobHandler)
	mux.HandleFunc("GET /api/research/jobs/{id}/report", s.app.ResearchHandler.DownloadReportHandler)
	mux.HandleFunc("GET /api/research/jobs/{id}/stream", s.app.ResearchHandler.StreamJobHandler)

	// Synchronous industry report
	mux.HandleFunc("POST /api/industry/{industry}/report", s.app.ResearchHandler.IndustryReportHandler)

	// Scoring
	mux.HandleFunc("POST /api/scoring/classify", s.app.ScoringHandler.ClassifyHandler)
	mux.HandleFunc("POST /api/scoring/rank", s.app.ScoringHandler.RankHandler)

	// System
	mux.HandleFunc("GET /api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("GET /api/version", s.app.APIHandler.VersionHandler)
	mux.Handle("GET /metrics", s.app.Metrics.Handler())

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

package handlers

import (
	"context"

	"github.com/ternarybob/stockscope/internal/models"
)

// ResearchService submits research jobs and builds ad-hoc industry reports.
type ResearchService interface {
	Submit(ctx context.Context, req models.ResearchRequest) (string, error)
	BuildIndustryReport(ctx context.Context, industry string, symbols []string) ([]byte, string, error)
}

// JobReader is the read side of the job store.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*models.Job, error)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/stockscope/internal/models"
)

// RRGProvider returns relative-rotation history for a symbol panel.
type RRGProvider interface {
	GetRRGHistory(ctx context.Context, symbols []string, lookbackDays int) (*models.RRGHistory, error)
}

// UniverseProvider returns the stock universe of a sector or industry, by cap bucket.
type UniverseProvider interface {
	GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error)
}

// AnalysisProvider runs valuation analysis for one chunk of symbols.
type AnalysisProvider interface {
	AnalyzeIndustry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// ReportProvider renders one symbol's research document. rank may be nil.
type ReportProvider interface {
	GetSymbolReport(ctx context.Context, symbol string, rank *models.RankInfo) ([]byte, error)
}

// ResearchBackend is the full set of remote collaborators the research pipeline consumes.
type ResearchBackend interface {
	RRGProvider
	UniverseProvider
	AnalysisProvider
	ReportProvider
}

// JobStore is the research job registry shared by the pipeline and the status endpoints.
type JobStore interface {
	CreateJob(ctx context.Context) string
	GetJob(ctx context.Context, id string) (*models.Job, error)
	UpdateJob(ctx context.Context, id string, update models.JobUpdate) error
	CompleteJob(ctx context.Context, id string, result *models.JobResult) error
	FailJob(ctx context.Context, id string, message string) error
}

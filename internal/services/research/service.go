// Package research runs the asynchronous sector research pipeline: sector selection,
// universe fetch, batched valuation analysis, eligibility ranking and report assembly.
package research

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/metrics"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/batch"
	"github.com/ternarybob/stockscope/internal/services/scoring"
)

// Job progress checkpoints. Analysis reports inside [progressUniverse, progressAnalyzed]
// and report assembly inside [progressRanked, progressReported].
const (
	progressStarted  = 5
	progressSector   = 20
	progressUniverse = 30
	progressAnalyzed = 70
	progressRanked   = 75
	progressReported = 95
)

// Stage names used for metrics and logs.
const (
	stageSector   = "sector"
	stageUniverse = "universe"
	stageAnalysis = "analysis"
	stageRanking  = "ranking"
	stageReport   = "report"
)

// Collaborators are the remote services a pipeline run consumes.
type Collaborators struct {
	RRG      interfaces.RRGProvider
	Universe interfaces.UniverseProvider
	Analysis interfaces.AnalysisProvider
	Reports  *ReportAssembler
}

// Options tune the pipeline.
type Options struct {
	Defaults  Defaults
	BatchSize int
	// Configured is false when no backend location is set; submissions are then refused.
	Configured bool
	Now        func() time.Time
}

// Service submits research jobs and runs each on its own goroutine.
type Service struct {
	store   interfaces.JobStore
	collab  Collaborators
	opts    Options
	metrics *metrics.Metrics
	logger  arbor.ILogger
	wg      sync.WaitGroup
}

// NewService creates a research service. m may be nil.
func NewService(store interfaces.JobStore, collab Collaborators, opts Options, m *metrics.Metrics, logger arbor.ILogger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = batch.DefaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:   store,
		collab:  collab,
		opts:    opts,
		metrics: m,
		logger:  logger,
	}
}

// Submit validates configuration, creates a PENDING job and starts the pipeline in the
// background. It returns the job id without waiting for the run.
func (s *Service) Submit(ctx context.Context, req models.ResearchRequest) (string, error) {
	if !s.opts.Configured {
		return "", common.ErrBackendNotConfigured
	}

	req = NormalizeRequest(req, s.opts.Defaults)
	jobID := s.store.CreateJob(ctx)
	s.metrics.JobSubmitted()

	s.logger.Info().
		Str("job_id", jobID).
		Str("sector", req.Sector).
		Int("lookback_days", req.LookbackDays).
		Int("top_n", req.TopN).
		Msg("Research job submitted")

	started := s.opts.Now()
	s.wg.Add(1)
	common.SafeGoWithHandler(s.logger, "research:"+jobID, func() {
		s.run(jobID, req, started)
		s.wg.Done()
	}, func(r interface{}, _ string) {
		defer s.wg.Done()
		s.finish(context.Background(), jobID, fmt.Errorf("internal error: %v", r), nil, started)
	})

	return jobID, nil
}

// Wait blocks until every submitted job has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is detached from the submitting request; no deadline or cancellation applies.
func (s *Service) run(jobID string, req models.ResearchRequest, started time.Time) {
	ctx := context.Background()
	s.metrics.JobStarted()

	result, err := s.execute(ctx, jobID, req)
	s.finish(ctx, jobID, err, result, started)
}

func (s *Service) finish(ctx context.Context, jobID string, err error, result *models.JobResult, started time.Time) {
	logger := s.logger.WithCorrelationId(jobID)
	elapsed := s.opts.Now().Sub(started)

	if err == nil {
		if cerr := s.store.CompleteJob(ctx, jobID, result); cerr != nil {
			err = fmt.Errorf("failed to complete job: %w", cerr)
		} else {
			s.metrics.JobFinished(string(models.JobStatusCompleted), elapsed)
			logger.Info().
				Str("job_id", jobID).
				Str("sector", result.SectorName).
				Str("filename", result.Filename).
				Dur("elapsed", elapsed).
				Msg("Research job completed")
			return
		}
	}

	if ferr := s.store.FailJob(ctx, jobID, err.Error()); ferr != nil {
		logger.Warn().Err(ferr).Str("job_id", jobID).Msg("Failed to record job failure")
	}
	s.metrics.JobFinished(string(models.JobStatusFailed), elapsed)
	logger.Error().
		Err(err).
		Str("job_id", jobID).
		Dur("elapsed", elapsed).
		Msg("Research job failed")
}

func (s *Service) execute(ctx context.Context, jobID string, req models.ResearchRequest) (*models.JobResult, error) {
	logger := s.logger.WithCorrelationId(jobID)
	p := &progress{store: s.store, jobID: jobID, logger: logger}

	processing := models.JobStatusProcessing
	if err := s.store.UpdateJob(ctx, jobID, models.JobUpdate{Status: &processing}); err != nil {
		return nil, fmt.Errorf("failed to start job: %w", err)
	}
	p.set(ctx, progressStarted)

	// 1. Sector
	sector := req.Sector
	if sector == "" {
		stageStart := s.opts.Now()
		leader, err := ResolveSector(ctx, s.collab.RRG, req.LookbackDays)
		if err != nil {
			return nil, err
		}
		sector = leader.Label
		s.stageDone(logger, stageSector, stageStart)
		logger.Info().
			Str("etf", leader.ETF).
			Str("sector", sector).
			Str("score", fmt.Sprintf("%.2f", leader.Score)).
			Msg("Leading sector selected")
	}
	if sector == "" {
		return nil, errors.New("sector must not be empty")
	}
	p.set(ctx, progressSector)

	// 2. Universe
	stageStart := s.opts.Now()
	stocks, err := s.collab.Universe.GetSectorStocks(ctx, sector)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch universe for sector %s: %w", sector, err)
	}
	symbols, buckets := stocks.Flatten()
	if len(symbols) == 0 {
		// Capitalised: clients match on this job error text.
		return nil, fmt.Errorf("No symbols found for sector %s", sector)
	}
	s.stageDone(logger, stageUniverse, stageStart)
	logger.Info().Str("sector", sector).Int("symbols", len(symbols)).Msg("Universe fetched")
	p.set(ctx, progressUniverse)

	// 3. Batched analysis
	stageStart = s.opts.Now()
	analysis, err := batch.AnalyzeBatched(ctx, s.collab.Analysis, sector, symbols, s.opts.BatchSize,
		req.Weights, req.Filters, func(pct int) {
			p.set(ctx, scale(progressUniverse, progressAnalyzed, pct, 100))
		})
	if err != nil {
		return nil, err
	}
	s.stageDone(logger, stageAnalysis, stageStart)

	// 4. Eligibility and ranking
	stageStart = s.opts.Now()
	entries := selectEntries(analysis.Symbols, buckets, req.TopN)
	if len(entries) == 0 {
		// Capitalised to read like the other job-level messages clients display.
		return nil, fmt.Errorf("No symbols passed the screening filters for sector %s", sector)
	}
	s.stageDone(logger, stageRanking, stageStart)
	logger.Info().
		Int("analyzed", len(analysis.Symbols)).
		Int("eligible", entries[0].Rank.Total).
		Int("selected", len(entries)).
		Msg("Eligible symbols ranked")
	p.set(ctx, progressRanked)

	// 5. Report
	stageStart = s.opts.Now()
	title := fmt.Sprintf("%s sector research", sector)
	pdf, err := s.collab.Reports.Assemble(ctx, title, entries, AbortOnError, func(done, total int) {
		p.set(ctx, scale(progressRanked, progressReported, done, total))
	})
	if err != nil {
		return nil, err
	}
	s.stageDone(logger, stageReport, stageStart)
	p.set(ctx, progressReported)

	return &models.JobResult{
		PDFBase64:  base64.StdEncoding.EncodeToString(pdf),
		Filename:   ReportFilename(sector, s.opts.Now()),
		SectorName: sector,
	}, nil
}

func (s *Service) stageDone(logger arbor.ILogger, stage string, started time.Time) {
	elapsed := s.opts.Now().Sub(started)
	s.metrics.StageCompleted(stage, elapsed)
	logger.Debug().Str("stage", stage).Dur("elapsed", elapsed).Msg("Stage completed")
}

// BuildIndustryReport assembles a combined report for symbols in the given order,
// substituting an error page for any symbol whose document cannot be fetched.
func (s *Service) BuildIndustryReport(ctx context.Context, industry string, symbols []string) ([]byte, string, error) {
	if !s.opts.Configured {
		return nil, "", common.ErrBackendNotConfigured
	}

	seen := make(map[string]bool, len(symbols))
	var entries []ReportEntry
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		entries = append(entries, ReportEntry{Symbol: sym})
	}
	for i := range entries {
		entries[i].Rank = &models.RankInfo{Rank: i + 1, Total: len(entries)}
	}

	pdf, err := s.collab.Reports.Assemble(ctx, fmt.Sprintf("%s industry report", industry), entries, ErrorPage, nil)
	if err != nil {
		return nil, "", err
	}
	return pdf, ReportFilename(industry, s.opts.Now()), nil
}

// selectEntries keeps rows that pass the backend's filters, ranks them 1..N in response
// order and returns the first topN with composite scores attached.
func selectEntries(rows []models.AnalysisRow, buckets map[string]string, topN int) []ReportEntry {
	var eligible []models.AnalysisRow
	for _, row := range rows {
		if row.PassesFilters && strings.TrimSpace(row.Symbol) != "" {
			eligible = append(eligible, row)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	candidates := make([]scoring.Candidate, 0, len(eligible))
	for _, row := range eligible {
		candidates = append(candidates, scoring.Candidate{
			Symbol: row.Symbol,
			Bucket: buckets[strings.ToUpper(row.Symbol)],
			Ratios: row.Ratios,
		})
	}
	scored := scoring.ScoreCandidates(candidates, nil)

	n := len(eligible)
	if topN > 0 && topN < n {
		n = topN
	}

	entries := make([]ReportEntry, 0, n)
	for i := 0; i < n; i++ {
		row := eligible[i]
		score := scored[i].Score
		entries = append(entries, ReportEntry{
			Symbol:         strings.ToUpper(row.Symbol),
			Bucket:         scored[i].Bucket,
			Rank:           &models.RankInfo{Rank: i + 1, Total: len(eligible)},
			ValuationScore: row.Valuation.Score,
			Style:          scored[i].Classification,
			CompositeScore: &score,
		})
	}
	return entries
}

// ReportFilename returns "{slug}-research-{YYYY-MM-DD}.pdf".
func ReportFilename(name string, now time.Time) string {
	return fmt.Sprintf("%s-research-%s.pdf", slugify(name), now.Format("2006-01-02"))
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "sector"
	}
	return slug
}

// scale maps done/total onto [lo, hi].
func scale(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + int(math.Round(float64(hi-lo)*float64(done)/float64(total)))
}

// progress forwards monotonic progress updates to the store.
type progress struct {
	store  interfaces.JobStore
	jobID  string
	logger arbor.ILogger
	last   int
}

func (p *progress) set(ctx context.Context, value int) {
	if value <= p.last {
		return
	}
	p.last = value
	if err := p.store.UpdateJob(ctx, p.jobID, models.JobUpdate{Progress: &value}); err != nil {
		p.logger.Warn().Err(err).Int("progress", value).Msg("Failed to update job progress")
	}
}

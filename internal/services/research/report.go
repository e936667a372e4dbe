package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/scoring"
	"golang.org/x/sync/errgroup"
)

// DefaultReportConcurrency bounds parallel per-symbol report fetches.
const DefaultReportConcurrency = 4

// ReportPolicy decides what happens when one symbol's document cannot be fetched.
type ReportPolicy int

const (
	// AbortOnError fails the whole report on the first per-symbol failure.
	AbortOnError ReportPolicy = iota
	// ErrorPage substitutes a rendered error page for the failed symbol.
	ErrorPage
)

// ReportEntry is one symbol in a combined report, in output order.
type ReportEntry struct {
	Symbol         string
	Bucket         string
	Rank           *models.RankInfo
	ValuationScore *float64
	Style          scoring.Style
	CompositeScore *int
}

// ReportProgressFunc is called after each per-symbol document arrives.
type ReportProgressFunc func(done, total int)

// ReportAssembler builds a combined report: a cover page followed by one document per
// entry, in entry order.
type ReportAssembler struct {
	reports     interfaces.ReportProvider
	pdf         interfaces.PDFService
	merger      interfaces.PDFMerger
	concurrency int
	logger      arbor.ILogger
	now         func() time.Time
}

// NewReportAssembler creates an assembler. concurrency <= 0 uses DefaultReportConcurrency.
func NewReportAssembler(
	reports interfaces.ReportProvider,
	pdf interfaces.PDFService,
	merger interfaces.PDFMerger,
	concurrency int,
	logger arbor.ILogger,
) *ReportAssembler {
	if concurrency <= 0 {
		concurrency = DefaultReportConcurrency
	}
	return &ReportAssembler{
		reports:     reports,
		pdf:         pdf,
		merger:      merger,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Assemble fetches every entry's document and merges them behind a cover page titled
// title. onProgress may be nil.
func (a *ReportAssembler) Assemble(
	ctx context.Context,
	title string,
	entries []ReportEntry,
	policy ReportPolicy,
	onProgress ReportProgressFunc,
) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no symbols selected for report")
	}

	docs, err := a.fetchAll(ctx, entries, policy, onProgress)
	if err != nil {
		return nil, err
	}

	cover, err := a.pdf.ConvertMarkdownToPDF(a.coverMarkdown(title, entries), title)
	if err != nil {
		return nil, fmt.Errorf("failed to render cover page: %w", err)
	}

	merged, err := a.merger.Merge(ctx, append([][]byte{cover}, docs...))
	if err != nil {
		return nil, fmt.Errorf("failed to merge reports: %w", err)
	}
	return merged, nil
}

func (a *ReportAssembler) fetchAll(
	ctx context.Context,
	entries []ReportEntry,
	policy ReportPolicy,
	onProgress ReportProgressFunc,
) ([][]byte, error) {
	docs := make([][]byte, len(entries))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, entry := range entries {
		g.Go(func() error {
			doc, err := a.reports.GetSymbolReport(gctx, entry.Symbol, entry.Rank)
			if err != nil {
				if policy != ErrorPage {
					return fmt.Errorf("failed to generate report for %s: %w", entry.Symbol, err)
				}
				a.logger.Warn().Err(err).Str("symbol", entry.Symbol).Msg("Report unavailable, inserting error page")
				doc, err = a.pdf.RenderErrorPage(entry.Symbol, err)
				if err != nil {
					return fmt.Errorf("failed to render error page for %s: %w", entry.Symbol, err)
				}
			}
			docs[i] = doc

			mu.Lock()
			done++
			if onProgress != nil {
				onProgress(done, len(entries))
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (a *ReportAssembler) coverMarkdown(title string, entries []ReportEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Generated %s\n\n", a.now().UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("| Rank | Symbol | Bucket | Valuation | Class | Score |\n")
	b.WriteString("|------|--------|--------|-----------|-------|-------|\n")
	for _, e := range entries {
		rank := "-"
		if e.Rank != nil {
			rank = fmt.Sprintf("%d/%d", e.Rank.Rank, e.Rank.Total)
		}
		valuation := "-"
		if e.ValuationScore != nil {
			valuation = fmt.Sprintf("%.2f", *e.ValuationScore)
		}
		style := "-"
		if e.Style != "" {
			style = string(e.Style)
		}
		score := "-"
		if e.CompositeScore != nil {
			score = fmt.Sprintf("%d", *e.CompositeScore)
		}
		bucket := e.Bucket
		if bucket == "" {
			bucket = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n", rank, e.Symbol, bucket, valuation, style, score)
	}
	return b.String()
}

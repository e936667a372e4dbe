package research

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/jobs"
	"github.com/ternarybob/stockscope/internal/models"
)

var testNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu sync.Mutex

	rrg    *models.RRGHistory
	rrgErr error

	universe    map[string]*models.SectorStocks
	universeErr error

	// analyze defaults to marking every symbol as passing.
	analyze     func(req models.AnalysisRequest) (*models.AnalysisResult, error)
	chunkSizes  []int
	reportErrs  map[string]error
	reportDelay map[string]time.Duration
	reportRanks map[string]models.RankInfo
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		universe:    make(map[string]*models.SectorStocks),
		reportErrs:  make(map[string]error),
		reportDelay: make(map[string]time.Duration),
		reportRanks: make(map[string]models.RankInfo),
	}
}

func (f *fakeBackend) GetRRGHistory(ctx context.Context, symbols []string, lookbackDays int) (*models.RRGHistory, error) {
	if f.rrgErr != nil {
		return nil, f.rrgErr
	}
	return f.rrg, nil
}

func (f *fakeBackend) GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error) {
	if f.universeErr != nil {
		return nil, f.universeErr
	}
	if s, ok := f.universe[sector]; ok {
		return s, nil
	}
	return &models.SectorStocks{}, nil
}

func (f *fakeBackend) AnalyzeIndustry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	f.mu.Lock()
	f.chunkSizes = append(f.chunkSizes, len(req.Symbols))
	f.mu.Unlock()

	if f.analyze != nil {
		return f.analyze(req)
	}
	rows := make([]models.AnalysisRow, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		rows = append(rows, models.AnalysisRow{Symbol: s, PassesFilters: true})
	}
	return &models.AnalysisResult{Industry: req.Industry, Symbols: rows}, nil
}

func (f *fakeBackend) GetSymbolReport(ctx context.Context, symbol string, rank *models.RankInfo) ([]byte, error) {
	if d := f.reportDelay[symbol]; d > 0 {
		time.Sleep(d)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rank != nil {
		f.reportRanks[symbol] = *rank
	}
	if err := f.reportErrs[symbol]; err != nil {
		return nil, err
	}
	return []byte("doc:" + symbol), nil
}

// fakePDF renders recognisable byte strings instead of real PDFs.
type fakePDF struct {
	lastCover string
}

func (p *fakePDF) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	p.lastCover = markdown
	return []byte("cover:" + title), nil
}

func (p *fakePDF) RenderErrorPage(symbol string, cause error) ([]byte, error) {
	return []byte("error:" + symbol), nil
}

type joinMerger struct{}

func (joinMerger) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, errors.New("nothing to merge")
	}
	return bytes.Join(docs, []byte("|")), nil
}

// recordingStore captures every progress value written by the pipeline.
type recordingStore struct {
	*jobs.Store
	mu       sync.Mutex
	progress []int
}

func (r *recordingStore) UpdateJob(ctx context.Context, id string, update models.JobUpdate) error {
	if update.Progress != nil {
		r.mu.Lock()
		r.progress = append(r.progress, *update.Progress)
		r.mu.Unlock()
	}
	return r.Store.UpdateJob(ctx, id, update)
}

func (r *recordingStore) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.progress...)
}

type harness struct {
	backend *fakeBackend
	pdf     *fakePDF
	store   *recordingStore
	service *Service
}

func newHarness(configured bool) *harness {
	logger := arbor.NewLogger()
	backend := newFakeBackend()
	pdf := &fakePDF{}
	store := &recordingStore{Store: jobs.NewStore(jobs.StoreOptions{}, logger)}

	assembler := NewReportAssembler(backend, pdf, joinMerger{}, 3, logger)
	assembler.now = func() time.Time { return testNow }

	service := NewService(store, Collaborators{
		RRG:      backend,
		Universe: backend,
		Analysis: backend,
		Reports:  assembler,
	}, Options{
		Configured: configured,
		Now:        func() time.Time { return testNow },
	}, nil, logger)

	return &harness{backend: backend, pdf: pdf, store: store, service: service}
}

func stocks(symbols ...string) *models.SectorStocks {
	s := &models.SectorStocks{}
	for _, sym := range symbols {
		s.Large = append(s.Large, models.UniverseStock{Symbol: sym})
	}
	return s
}

func symbolRange(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return out
}

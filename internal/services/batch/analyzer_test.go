package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockscope/internal/models"
)

type fakeAnalysis struct {
	mu       sync.Mutex
	calls    [][]string
	inFlight int
	maxSeen  int
	failAt   int // 1-based call number to fail, 0 never
}

func (f *fakeAnalysis) AnalyzeIndustry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), req.Symbols...))
	n := len(f.calls)
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failAt == n {
		return nil, errors.New("backend returned 502")
	}

	rows := make([]models.AnalysisRow, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		rows = append(rows, models.AnalysisRow{Symbol: s, Industry: req.Industry, PassesFilters: true})
	}
	return &models.AnalysisResult{Industry: req.Industry, Symbols: rows}, nil
}

func symbols(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("S%03d", i)
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"empty", 0, 20, []int{}},
		{"exact multiple", 40, 20, []int{20, 20}},
		{"remainder", 45, 20, []int{20, 20, 5}},
		{"smaller than size", 3, 20, []int{3}},
		{"non-positive size uses default", 25, 0, []int{20, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(symbols(tt.n), tt.size)
			got := make([]int, 0, len(chunks))
			for _, c := range chunks {
				got = append(got, len(c))
			}
			assert.Equal(t, tt.sizes, got)
		})
	}
}

func TestAnalyzeBatched_MergesInOrder(t *testing.T) {
	provider := &fakeAnalysis{}
	in := symbols(45)
	var progress []int

	res, err := AnalyzeBatched(context.Background(), provider, "Software", in, 20, map[string]float64{"pe": 2}, nil, func(p int) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	require.Len(t, res.Symbols, 45)
	for i, row := range res.Symbols {
		assert.Equal(t, in[i], row.Symbol)
	}
	assert.Equal(t, "Software", res.Industry)
	assert.Len(t, provider.calls, 3)
	assert.Equal(t, []int{44, 89, 100}, progress)
	assert.Equal(t, 1, provider.maxSeen, "chunks are sent sequentially")
}

func TestAnalyzeBatched_ProgressNonDecreasingAndEndsAt100(t *testing.T) {
	for _, n := range []int{1, 7, 19, 20, 21, 99, 100, 333} {
		t.Run(fmt.Sprintf("%d symbols", n), func(t *testing.T) {
			var progress []int
			_, err := AnalyzeBatched(context.Background(), &fakeAnalysis{}, "X", symbols(n), 20, nil, nil, func(p int) {
				progress = append(progress, p)
			})
			require.NoError(t, err)
			require.NotEmpty(t, progress)
			for i := 1; i < len(progress); i++ {
				assert.GreaterOrEqual(t, progress[i], progress[i-1])
			}
			assert.Equal(t, 100, progress[len(progress)-1])
		})
	}
}

func TestAnalyzeBatched_ChunkFailureAborts(t *testing.T) {
	provider := &fakeAnalysis{failAt: 2}
	var progress []int

	res, err := AnalyzeBatched(context.Background(), provider, "Banks", symbols(60), 20, nil, nil, func(p int) {
		progress = append(progress, p)
	})

	require.Error(t, err)
	assert.Nil(t, res, "no partial result")
	assert.Len(t, provider.calls, 2, "later chunks are not attempted")
	assert.Equal(t, []int{33}, progress)
	assert.Contains(t, err.Error(), "backend returned 502")

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.Index)
	assert.Equal(t, 3, chunkErr.Chunks)
}

func TestAnalyzeBatched_EmptySymbols(t *testing.T) {
	provider := &fakeAnalysis{}
	var progress []int

	res, err := AnalyzeBatched(context.Background(), provider, "Banks", nil, 20, nil, nil, func(p int) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	assert.Empty(t, res.Symbols)
	assert.Empty(t, provider.calls)
	assert.Equal(t, []int{100}, progress)
}

func TestAnalyzeBatched_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AnalyzeBatched(ctx, &fakeAnalysis{}, "Banks", symbols(5), 20, nil, nil, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeBatched_PassesWeightsAndFilters(t *testing.T) {
	var got models.AnalysisRequest
	provider := analysisFunc(func(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
		got = req
		return &models.AnalysisResult{}, nil
	})
	filters := &models.ScreenerFilters{Cap: "large", RuleLogic: "AND"}

	_, err := AnalyzeBatched(context.Background(), provider, "Oil & Gas", []string{"XOM"}, 20, map[string]float64{"pe": 1.5}, filters, nil)

	require.NoError(t, err)
	assert.Equal(t, "Oil & Gas", got.Industry)
	assert.Equal(t, []string{"XOM"}, got.Symbols)
	assert.Equal(t, map[string]float64{"pe": 1.5}, got.Weights)
	assert.Same(t, filters, got.Filters)
}

type analysisFunc func(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)

func (f analysisFunc) AnalyzeIndustry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	return f(ctx, req)
}

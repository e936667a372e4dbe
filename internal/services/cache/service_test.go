package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/storage/badger"
)

type countingUniverse struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (u *countingUniverse) GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	if u.err != nil {
		return nil, u.err
	}
	return &models.SectorStocks{Large: []models.UniverseStock{{Symbol: "AAPL"}}}, nil
}

type countingRRG struct {
	calls int
}

func (r *countingRRG) GetRRGHistory(ctx context.Context, symbols []string, lookbackDays int) (*models.RRGHistory, error) {
	r.calls++
	return &models.RRGHistory{
		Benchmark:    "SPY",
		LookbackDays: lookbackDays,
		Data:         []models.RRGPoint{{Symbol: symbols[0], RSRatio: 101, RSMomentum: 99}},
	}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := badger.Open("", arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(badger.NewCacheStorage(db, arbor.NewLogger()), time.Hour, arbor.NewLogger())
}

func TestCachedUniverse(t *testing.T) {
	ctx := context.Background()
	next := &countingUniverse{}
	universe := newTestService(t).WrapUniverse(next)

	first, err := universe.GetSectorStocks(ctx, "Technology")
	require.NoError(t, err)
	second, err := universe.GetSectorStocks(ctx, " technology ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls, "second lookup is a hit")
	assert.Equal(t, first, second)

	_, err = universe.GetSectorStocks(ctx, "Energy")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedUniverse_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	next := &countingUniverse{err: errors.New("backend down")}
	universe := newTestService(t).WrapUniverse(next)

	_, err := universe.GetSectorStocks(ctx, "Technology")
	require.Error(t, err)

	next.err = nil
	stocks, err := universe.GetSectorStocks(ctx, "Technology")
	require.NoError(t, err)
	assert.Len(t, stocks.Large, 1)
	assert.Equal(t, 2, next.calls)
}

func TestCachedRRG_KeyIgnoresSymbolOrder(t *testing.T) {
	ctx := context.Background()
	next := &countingRRG{}
	rrg := newTestService(t).WrapRRG(next)

	_, err := rrg.GetRRGHistory(ctx, []string{"XLK", "XLF"}, 180)
	require.NoError(t, err)
	got, err := rrg.GetRRGHistory(ctx, []string{"xlf", "XLK"}, 180)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "SPY", got.Benchmark)

	_, err = rrg.GetRRGHistory(ctx, []string{"XLK", "XLF"}, 90)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "lookback is part of the key")
}

func TestService_Purge(t *testing.T) {
	svc := newTestService(t)
	assert.Equal(t, 0, svc.Purge())
}

package research

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockscope/internal/models"
)

func TestPickLeader_UsesLatestPointPerSymbol(t *testing.T) {
	points := []models.RRGPoint{
		{Symbol: "XLF", Date: "2024-02-29", RSRatio: 100, RSMomentum: 100},
		{Symbol: "xlk", Date: "2024-02-29", RSRatio: 103, RSMomentum: 101},
		{Symbol: "XLK", Date: "2024-01-31", RSRatio: 90, RSMomentum: 90},
		{Symbol: "XLF", Date: "2024-01-31", RSRatio: 130, RSMomentum: 130},
	}

	leader, ok := pickLeader(points)

	require.True(t, ok)
	assert.Equal(t, "XLK", leader.ETF)
	assert.Equal(t, "Technology", leader.Label)
	assert.InDelta(t, 102.0, leader.Score, 1e-9)
}

func TestPickLeader_TieKeepsFirstSeen(t *testing.T) {
	points := []models.RRGPoint{
		{Symbol: "XLU", Date: "2024-02-29", RSRatio: 100, RSMomentum: 100},
		{Symbol: "XLP", Date: "2024-02-29", RSRatio: 100, RSMomentum: 100},
	}

	leader, ok := pickLeader(points)

	require.True(t, ok)
	assert.Equal(t, "XLU", leader.ETF)
}

func TestPickLeader_Empty(t *testing.T) {
	_, ok := pickLeader(nil)
	assert.False(t, ok)

	_, ok = pickLeader([]models.RRGPoint{{Symbol: " "}})
	assert.False(t, ok)
}

func TestSectorLabel(t *testing.T) {
	assert.Equal(t, "Health Care", SectorLabel("xlv"))
	assert.Equal(t, "Real Estate", SectorLabel("IYR"))
	assert.Equal(t, "SMH", SectorLabel(" smh "), "unmapped symbols fall back to themselves")
}

func TestResolveSector_Errors(t *testing.T) {
	backend := newFakeBackend()
	backend.rrgErr = errors.New("connection refused")

	_, err := ResolveSector(context.Background(), backend, 180)
	assert.ErrorContains(t, err, "connection refused")

	backend.rrgErr = nil
	_, err = ResolveSector(context.Background(), backend, 180)
	assert.ErrorIs(t, err, ErrNoRotationData, "nil history")
}

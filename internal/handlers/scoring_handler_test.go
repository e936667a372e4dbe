package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/services/scoring"
)

func newScoringMux() *http.ServeMux {
	h := NewScoringHandler(arbor.NewLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scoring/classify", h.ClassifyHandler)
	mux.HandleFunc("POST /api/scoring/rank", h.RankHandler)
	return mux
}

func TestClassifyHandler(t *testing.T) {
	body := `{
		"symbol": "aapl",
		"ratios": {"pe": 100},
		"peers": [{"pe": 8}, {"pe": 10}, {"pe": 12}, {"pe": 15}, {"pe": 18}, {"pe": 20}, {"pe": 22}, {"pe": 25}]
	}`

	rec := serve(newScoringMux(), http.MethodPost, "/api/scoring/classify", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AAPL", resp.Symbol)
	assert.Equal(t, scoring.WayAbove, resp.Classifications["pe"], "P/E far above peers")
	assert.Equal(t, 8, resp.Stats["pe"].Count)
	assert.GreaterOrEqual(t, resp.GrowthValue.Score, 0)
	assert.LessOrEqual(t, resp.GrowthValue.Score, 100)
}

func TestClassifyHandler_Validation(t *testing.T) {
	mux := newScoringMux()

	rec := serve(mux, http.MethodPost, "/api/scoring/classify", `{"peers":[{"pe":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "ratios required")

	rec = serve(mux, http.MethodPost, "/api/scoring/classify", `{"ratios":{"pe":1},"peers":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "at least one peer")
}

func TestRankHandler(t *testing.T) {
	body := `{
		"top_n": 2,
		"symbol": "ccc",
		"candidates": [
			{"symbol": "AAA", "ratios": {"pe": 30, "revenue_growth": 0.05}},
			{"symbol": "BBB", "ratios": {"pe": 10, "revenue_growth": 0.30}},
			{"symbol": "CCC", "ratios": {"pe": 20, "revenue_growth": 0.15}}
		]
	}`

	rec := serve(newScoringMux(), http.MethodPost, "/api/scoring/rank", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Ranked, 2)
	assert.GreaterOrEqual(t, resp.Ranked[0].Score, resp.Ranked[1].Score)
	require.NotNil(t, resp.Rank)
	assert.Equal(t, 3, resp.Rank.Total)
}

func TestRankHandler_Validation(t *testing.T) {
	mux := newScoringMux()

	tests := map[string]string{
		"no candidates":  `{"candidates":[]}`,
		"missing symbol": `{"candidates":[{"ratios":{"pe":1}}]}`,
		"negative top_n": `{"candidates":[{"symbol":"A"}],"top_n":-1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(mux, http.MethodPost, "/api/scoring/rank", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/scoring"
)

// ScoringHandler exposes the classification engine over HTTP. It has no state.
type ScoringHandler struct {
	logger arbor.ILogger
}

func NewScoringHandler(logger arbor.ILogger) *ScoringHandler {
	return &ScoringHandler{logger: logger}
}

type classifyRequest struct {
	Symbol string                    `json:"symbol"`
	Ratios *models.ValuationRatios   `json:"ratios" validate:"required"`
	Peers  []*models.ValuationRatios `json:"peers" validate:"required,min=1"`
}

type classifyResponse struct {
	Symbol          string                                  `json:"symbol,omitempty"`
	Classifications map[string]scoring.MetricClassification `json:"classifications"`
	GrowthValue     scoring.GrowthValueScore                `json:"growthValue"`
	Stats           map[string]scoring.IndustryStats        `json:"stats"`
}

// ClassifyHandler handles POST /api/scoring/classify. The stock is classified against
// the stats of peers.
func (h *ScoringHandler) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := DecodeAndValidate(w, r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats := scoring.BuildIndustryStats(req.Peers)
	WriteJSON(w, http.StatusOK, classifyResponse{
		Symbol:          strings.ToUpper(req.Symbol),
		Classifications: scoring.ClassifyMetrics(req.Ratios, stats),
		GrowthValue:     scoring.ClassifyGrowthValue(req.Ratios, stats),
		Stats:           stats,
	})
}

type rankRequest struct {
	Candidates []scoring.Candidate `json:"candidates" validate:"required,min=1,dive"`
	TopN       int                 `json:"top_n" validate:"gte=0"`
	// Symbol, when set, adds that symbol's rank among all candidates to the response.
	Symbol string `json:"symbol"`
}

type rankResponse struct {
	Ranked []scoring.RankedSymbol `json:"ranked"`
	Total  int                    `json:"total"`
	Rank   *models.RankInfo       `json:"rank,omitempty"`
}

// RankHandler handles POST /api/scoring/rank.
func (h *ScoringHandler) RankHandler(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := DecodeAndValidate(w, r, &req, false); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	scored := scoring.ScoreCandidates(req.Candidates, nil)
	resp := rankResponse{
		Ranked: scoring.RankTopN(scored, req.TopN),
		Total:  len(scored),
	}
	if req.Symbol != "" {
		if info, ok := scoring.PeerRank(req.Symbol, scored); ok {
			resp.Rank = &info
		}
	}

	h.logger.Debug().
		Int("candidates", len(req.Candidates)).
		Int("top_n", req.TopN).
		Msg("Candidates ranked")
	WriteJSON(w, http.StatusOK, resp)
}

// Package backend provides the HTTP client for the remote analysis collaborators:
// relative-rotation history, sector universes, industry valuation analysis and
// per-symbol research reports.
package backend

import (
	"fmt"
	"time"

	"github.com/ternarybob/stockscope/internal/models"
)

// Endpoint names used in logs and metrics.
const (
	EndpointRRGHistory   = "rrg_history"
	EndpointSectorStocks = "sector_stocks"
	EndpointAnalysis     = "industry_analysis"
	EndpointReport       = "symbol_report"
)

// APIError represents a non-success response from a collaborator.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError is returned when waiting for the client-side limiter is aborted.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("backend rate limit wait aborted, retry after %v: %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// rrgHistoryResponse is the /rrg/history payload.
type rrgHistoryResponse struct {
	Benchmark    string         `json:"benchmark"`
	LookbackDays int            `json:"lookback_days"`
	Data         []rrgPointWire `json:"data"`
	Error        string         `json:"error,omitempty"`
}

type rrgPointWire struct {
	Symbol       string   `json:"symbol"`
	Date         string   `json:"date"`
	RSRatio      *float64 `json:"rsRatio"`
	RSMomentum   *float64 `json:"rsMomentum"`
	Quadrant     string   `json:"quadrant"`
	LookbackDays int      `json:"lookback_days"`
}

// analysisRequestBody is the POST body of an industry analysis call.
type analysisRequestBody struct {
	Symbols []string                `json:"symbols"`
	Weights map[string]float64      `json:"weights,omitempty"`
	Filters *models.ScreenerFilters `json:"filters,omitempty"`
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/metrics"
	"github.com/ternarybob/stockscope/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// maxErrorBody caps how much of an error response is kept in APIError.Message.
	maxErrorBody = 2048
)

var pdfMagic = []byte("%PDF-")

// Client talks to the analysis backend and the report service.
type Client struct {
	baseURL    string
	reportURL  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

var _ interfaces.ResearchBackend = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithReportURL sets the base URL of the report service. Defaults to the backend URL.
func WithReportURL(reportURL string) ClientOption {
	return func(c *Client) {
		if reportURL != "" {
			c.reportURL = strings.TrimRight(reportURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithMetrics records every request outcome.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a backend client. An empty baseURL yields a client whose every call
// fails with common.ErrBackendNotConfigured.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL:   baseURL,
		reportURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Configured reports whether a backend location is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, endpoint, method, reqURL string, body []byte, accept string) ([]byte, error) {
	if !c.Configured() {
		return nil, common.ErrBackendNotConfigured
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.BackendRequest(endpoint, metrics.OutcomeError)
		return nil, &RateLimitError{RetryAfter: time.Second, Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)

	start := time.Now()
	if c.logger != nil {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("method", method).
			Str("url", reqURL).
			Msg("Backend request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.BackendRequest(endpoint, metrics.OutcomeError)
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.BackendRequest(endpoint, metrics.OutcomeHTTPError)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(msg, resp.Status),
			Endpoint:   endpoint,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.BackendRequest(endpoint, metrics.OutcomeError)
		return nil, fmt.Errorf("%s: failed to read response: %w", endpoint, err)
	}

	c.metrics.BackendRequest(endpoint, metrics.OutcomeSuccess)
	if c.logger != nil {
		c.logger.Debug().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Int("bytes", len(data)).
			Dur("duration", time.Since(start)).
			Msg("Backend response")
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, reqURL string, result interface{}) error {
	data, err := c.do(ctx, endpoint, http.MethodGet, reqURL, nil, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, reqURL string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: failed to encode request: %w", endpoint, err)
	}
	data, err := c.do(ctx, endpoint, http.MethodPost, reqURL, body, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", endpoint, err)
	}
	return nil
}

// GetRRGHistory retrieves relative-rotation history for symbols over lookbackDays.
// Points without both rsRatio and rsMomentum are dropped.
func (c *Client) GetRRGHistory(ctx context.Context, symbols []string, lookbackDays int) (*models.RRGHistory, error) {
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("lookback_days", strconv.Itoa(lookbackDays))

	var wire rrgHistoryResponse
	if err := c.getJSON(ctx, EndpointRRGHistory, c.baseURL+"/rrg/history?"+params.Encode(), &wire); err != nil {
		return nil, err
	}
	if wire.Error != "" {
		return nil, fmt.Errorf("%s: %s", EndpointRRGHistory, wire.Error)
	}

	history := &models.RRGHistory{
		Benchmark:    wire.Benchmark,
		LookbackDays: wire.LookbackDays,
		Data:         make([]models.RRGPoint, 0, len(wire.Data)),
	}
	for _, p := range wire.Data {
		if p.Symbol == "" || p.RSRatio == nil || p.RSMomentum == nil {
			continue
		}
		history.Data = append(history.Data, models.RRGPoint{
			Symbol:       p.Symbol,
			Date:         p.Date,
			RSRatio:      *p.RSRatio,
			RSMomentum:   *p.RSMomentum,
			Quadrant:     p.Quadrant,
			LookbackDays: p.LookbackDays,
		})
	}
	return history, nil
}

// GetSectorStocks retrieves the bucketed universe of a sector or industry.
func (c *Client) GetSectorStocks(ctx context.Context, sector string) (*models.SectorStocks, error) {
	params := url.Values{}
	params.Set("sector", sector)

	var result models.SectorStocks
	if err := c.getJSON(ctx, EndpointSectorStocks, c.baseURL+"/api/sector-stocks?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeIndustry runs valuation analysis for one chunk of symbols.
func (c *Client) AnalyzeIndustry(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	if req.Industry == "" {
		return nil, errors.New("industry is required")
	}

	reqURL := fmt.Sprintf("%s/api/industry/%s/analysis", c.baseURL, url.PathEscape(req.Industry))
	payload := analysisRequestBody{
		Symbols: req.Symbols,
		Weights: req.Weights,
		Filters: req.Filters,
	}

	var result models.AnalysisResult
	if err := c.postJSON(ctx, EndpointAnalysis, reqURL, payload, &result); err != nil {
		return nil, err
	}
	if result.Industry == "" {
		result.Industry = req.Industry
	}
	return &result, nil
}

// GetSymbolReport fetches one symbol's research PDF, annotated with its peer rank when
// rank is non-nil.
func (c *Client) GetSymbolReport(ctx context.Context, symbol string, rank *models.RankInfo) ([]byte, error) {
	params := url.Values{}
	if rank != nil {
		params.Set("rank", strconv.Itoa(rank.Rank))
		params.Set("total", strconv.Itoa(rank.Total))
	}
	reqURL := fmt.Sprintf("%s/api/report/%s", c.reportURL, url.PathEscape(strings.ToUpper(symbol)))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	data, err := c.do(ctx, EndpointReport, http.MethodGet, reqURL, nil, "application/pdf")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%s: response for %s is not a PDF", EndpointReport, symbol)
	}
	return data, nil
}

// errorMessage prefers a JSON {"error"|"detail"|"message"} field, then the raw body.
func errorMessage(body []byte, status string) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if v, ok := payload[key].(string); ok && v != "" {
				return v
			}
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}

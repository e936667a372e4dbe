package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/metrics"
	"github.com/ternarybob/stockscope/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithLogger(arbor.NewLogger()), WithRateLimit(0)}, opts...)
	return NewClient(srv.URL, opts...), srv
}

func TestClient_GetRRGHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rrg/history", r.URL.Path)
		assert.Equal(t, "XLK,XLF", r.URL.Query().Get("symbols"))
		assert.Equal(t, "180", r.URL.Query().Get("lookback_days"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"benchmark": "SPY",
			"lookback_days": 180,
			"data": [
				{"symbol":"XLK","date":"2026-02-27","rsRatio":102.5,"rsMomentum":101.0,"quadrant":"Leading","lookback_days":180},
				{"symbol":"XLF","date":"2026-02-27","rsRatio":null,"rsMomentum":99.0,"quadrant":"Lagging","lookback_days":180}
			]
		}`)
	})

	history, err := client.GetRRGHistory(context.Background(), []string{"XLK", "XLF"}, 180)

	require.NoError(t, err)
	assert.Equal(t, "SPY", history.Benchmark)
	require.Len(t, history.Data, 1, "points missing a coordinate are dropped")
	assert.Equal(t, "XLK", history.Data[0].Symbol)
	assert.Equal(t, 102.5, history.Data[0].RSRatio)
	assert.Equal(t, "Leading", history.Data[0].Quadrant)
}

func TestClient_GetRRGHistoryErrorField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"no price data","data":[]}`)
	})

	_, err := client.GetRRGHistory(context.Background(), []string{"XLK"}, 90)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price data")
}

func TestClient_GetSectorStocks(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sector-stocks", r.URL.Path)
		assert.Equal(t, "Information Technology", r.URL.Query().Get("sector"))
		_, _ = io.WriteString(w, `{"large":[{"symbol":"AAPL"}],"mid":[{"symbol":"dell"}],"small":[]}`)
	})

	stocks, err := client.GetSectorStocks(context.Background(), "Information Technology")

	require.NoError(t, err)
	symbols, buckets := stocks.Flatten()
	assert.Equal(t, []string{"AAPL", "DELL"}, symbols)
	assert.Equal(t, models.BucketMid, buckets["DELL"])
}

func TestClient_AnalyzeIndustry(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/industry/Oil & Gas/analysis", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []interface{}{"XOM", "CVX"}, body["symbols"])
		assert.Equal(t, map[string]interface{}{"pe": 2.0}, body["weights"])
		assert.NotContains(t, body, "filters")

		_, _ = io.WriteString(w, `{"symbols":[
			{"symbol":"XOM","passes_filters":true,"valuation":{"score":71.5},"ratios":{"pe":12.1}},
			{"symbol":"CVX","passes_filters":false,"valuation":{"score":null}}
		]}`)
	})

	res, err := client.AnalyzeIndustry(context.Background(), models.AnalysisRequest{
		Industry: "Oil & Gas",
		Symbols:  []string{"XOM", "CVX"},
		Weights:  map[string]float64{"pe": 2},
	})

	require.NoError(t, err)
	assert.Equal(t, "Oil & Gas", res.Industry)
	require.Len(t, res.Symbols, 2)
	assert.True(t, res.Symbols[0].PassesFilters)
	require.NotNil(t, res.Symbols[0].Valuation.Score)
	assert.Equal(t, 71.5, *res.Symbols[0].Valuation.Score)
	require.NotNil(t, res.Symbols[0].Ratios)
	assert.Equal(t, 12.1, *res.Symbols[0].Ratios.PE)
	assert.False(t, res.Symbols[1].PassesFilters)
	assert.Nil(t, res.Symbols[1].Valuation.Score)
}

func TestClient_AnalyzeIndustryRawValues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"industry": "Semiconductors",
			"symbols": [
				{"symbol":"NVDA","industry":"Semiconductors","sector":"Technology","passes_filters":true,
				 "valuation":{"score":42.0,"components":{"pe":0.3},
				  "raw_values":{"pe":55.2,"ps":30.1,"pb":40.0,"ev_ebit":48.0,"ev_ebitda":45.5,"ev_sales":29.0}}},
				{"symbol":"INTC","industry":"Semiconductors","sector":"Technology","passes_filters":true,
				 "valuation":{"score":88.0,"components":{"pe":0.9},
				  "raw_values":{"pe":null,"ps":1.9,"pb":0.9,"ev_ebit":null,"ev_ebitda":9.5,"ev_sales":2.4}}},
				{"symbol":"MU","passes_filters":false,
				 "valuation":{"score":null,"raw_values":{"pe":null,"ps":null,"pb":null,"ev_ebit":null,"ev_ebitda":null,"ev_sales":null}}}
			],
			"industry_stats": {"pe": {"count": 1, "p25": 55.2, "p75": 55.2}}
		}`)
	})

	res, err := client.AnalyzeIndustry(context.Background(), models.AnalysisRequest{
		Industry: "Semiconductors",
		Symbols:  []string{"NVDA", "INTC", "MU"},
	})

	require.NoError(t, err)
	require.Len(t, res.Symbols, 3)

	nvda := res.Symbols[0].Ratios
	require.NotNil(t, nvda, "ratios come from valuation.raw_values")
	assert.Equal(t, 55.2, *nvda.PE)
	assert.Equal(t, 45.5, *nvda.EVEBITDA)
	assert.Equal(t, 29.0, *nvda.EVSales)

	intc := res.Symbols[1].Ratios
	require.NotNil(t, intc)
	assert.Nil(t, intc.PE)
	assert.Equal(t, 0.9, *intc.PB)

	assert.Nil(t, res.Symbols[2].Ratios, "all-null raw values carry no ratios")
}

func TestClient_AnalyzeIndustryRequiresIndustry(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.AnalyzeIndustry(context.Background(), models.AnalysisRequest{Symbols: []string{"A"}})

	assert.Error(t, err)
}

func TestClient_GetSymbolReport(t *testing.T) {
	reportSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/report/MSFT", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("rank"))
		assert.Equal(t, "9", r.URL.Query().Get("total"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4 fake")
	}))
	defer reportSrv.Close()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("report must go to the report service")
	}, WithReportURL(reportSrv.URL+"/"))

	data, err := client.GetSymbolReport(context.Background(), "msft", &models.RankInfo{Rank: 2, Total: 9})

	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestClient_GetSymbolReportRejectsNonPDF(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery, "no rank params without rank")
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	_, err := client.GetSymbolReport(context.Background(), "AAPL", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error field", http.StatusBadGateway, `{"error":"upstream timeout"}`, "upstream timeout"},
		{"json detail field", http.StatusUnprocessableEntity, `{"detail":"bad symbols"}`, "bad symbols"},
		{"plain body", http.StatusInternalServerError, "kaboom", "kaboom"},
		{"empty body", http.StatusServiceUnavailable, "", "503 Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, WithMetrics(m))

			_, err := client.GetSectorStocks(context.Background(), "Energy")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, EndpointSectorStocks, apiErr.Endpoint)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestClient_MalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"large": [`)
	})

	_, err := client.GetSectorStocks(context.Background(), "Energy")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("")

	assert.False(t, client.Configured())
	_, err := client.GetSectorStocks(context.Background(), "Energy")
	assert.True(t, errors.Is(err, common.ErrBackendNotConfigured))
}

func TestClient_RateLimitWaitAborted(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}, WithRateLimit(1))

	// Drain the single token, then wait with an already-expired context.
	_, err := client.GetSectorStocks(context.Background(), "Energy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = client.GetSectorStocks(ctx, "Energy")

	var rlErr *RateLimitError
	assert.ErrorAs(t, err, &rlErr)
}

func TestClient_CountsOutcomes(t *testing.T) {
	m := metrics.New()
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"data":[]}`)
	}, WithMetrics(m))

	_, _ = client.GetRRGHistory(context.Background(), []string{"XLK"}, 30)
	_, _ = client.GetRRGHistory(context.Background(), []string{"XLK"}, 30)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "stockscope_backend_requests_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

// Package prices fetches daily close bars from the Financial Modeling Prep
// API, derives next-day fields, and left-joins them onto the per-ticker
// sentiment tables.
package prices

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"news-sentiment-pipeline/internal/api"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/types"
)

// Client fetches historical daily bars for a symbol.
type Client struct {
	client *api.Client
	apiKey string
}

// NewClient creates a price client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		apiKey: apiKey,
	}
}

type historicalResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date  string  `json:"date"`
		Close float64 `json:"close"`
	} `json:"historical"`
}

// FetchBars fetches daily close bars for a symbol over [from, to], both
// inclusive ISO dates. The vendor serves bars newest first; the result is
// sorted ascending. An empty window is valid and yields no bars.
func (c *Client) FetchBars(ctx context.Context, symbol, from, to string) ([]types.PriceBar, error) {
	path := fmt.Sprintf("/api/v3/historical-price-full/%s?from=%s&to=%s&apikey=%s",
		url.PathEscape(store.VendorSymbol(symbol)),
		url.QueryEscape(from), url.QueryEscape(to), url.QueryEscape(c.apiKey))

	req := api.NewRequest("GET", path).WithContext(ctx)
	resp, err := c.client.DoWithRetry(req, api.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("price request for %s: %w", symbol, err)
	}

	var parsed historicalResponse
	if err := resp.ParseJSON(&parsed); err != nil {
		return nil, fmt.Errorf("price response for %s: %w", symbol, err)
	}

	bars := make([]types.PriceBar, 0, len(parsed.Historical))
	for _, h := range parsed.Historical {
		if h.Date == "" {
			continue
		}
		bars = append(bars, types.PriceBar{Date: h.Date, Close: h.Close})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

// DeriveNextDay fills each bar's next-day close and simple return from the
// following bar in the window. The final bar keeps nil next-day fields; the
// trading day after it has not happened yet.
func DeriveNextDay(bars []types.PriceBar) {
	for i := range bars {
		if i+1 >= len(bars) {
			bars[i].NextDayClose = nil
			bars[i].NextDayReturn = nil
			continue
		}
		next := bars[i+1].Close
		bars[i].NextDayClose = &next
		if bars[i].Close != 0 {
			ret := next/bars[i].Close - 1
			bars[i].NextDayReturn = &ret
		} else {
			bars[i].NextDayReturn = nil
		}
	}
}

// FetchWindow expands [earliest, latest] headline dates into the fetch window:
// the upper bound gains bufferDays so the next trading day's close is usually
// available, capped at today.
func FetchWindow(earliest, latest string, bufferDays int, now time.Time) (from, to string) {
	from = earliest
	to = latest
	if t, err := time.Parse("2006-01-02", latest); err == nil {
		buffered := t.AddDate(0, 0, bufferDays)
		today := now.UTC().Truncate(24 * time.Hour)
		if buffered.After(today) {
			buffered = today
		}
		to = buffered.Format("2006-01-02")
	}
	return from, to
}

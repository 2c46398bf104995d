package news

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"news-sentiment-pipeline/internal/api"
	"news-sentiment-pipeline/internal/types"
)

// FMPClient fetches vendor news items from the Financial Modeling Prep API.
type FMPClient struct {
	client *api.Client
	apiKey string
	limit  int
}

// NewFMPClient creates a vendor news client.
func NewFMPClient(baseURL, apiKey string, limit int, timeout time.Duration) *FMPClient {
	return &FMPClient{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(timeout),
			api.WithLogging(true),
		),
		apiKey: apiKey,
		limit:  limit,
	}
}

type fmpNewsItem struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate"`
	Site          string `json:"site"`
}

// FetchNews fetches the latest vendor news items for a symbol. An empty
// result set is valid, not an error.
func (c *FMPClient) FetchNews(ctx context.Context, symbol string) ([]types.HeadlineRecord, error) {
	path := fmt.Sprintf("/api/v4/general_news?tickers=%s&limit=%d&apikey=%s",
		url.QueryEscape(symbol), c.limit, url.QueryEscape(c.apiKey))

	resp, err := c.client.GET(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fmp news request for %s: %w", symbol, err)
	}

	var items []fmpNewsItem
	if err := resp.ParseJSON(&items); err != nil {
		return nil, fmt.Errorf("fmp news response for %s: %w", symbol, err)
	}

	records := make([]types.HeadlineRecord, 0, len(items))
	for _, item := range items {
		if item.Title == "" {
			continue
		}
		records = append(records, types.HeadlineRecord{
			Title:     item.Title,
			Link:      item.URL,
			Published: item.PublishedDate,
			Date:      parsePublished(item.PublishedDate),
			Source:    "FMP",
		})
	}
	return records, nil
}

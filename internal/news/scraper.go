package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/types"
)

// Scraper pulls headline records from the Google News search feed.
type Scraper struct {
	timeout    time.Duration
	maxEntries int
}

// NewScraper creates a feed scraper.
func NewScraper(timeout time.Duration, maxEntries int) *Scraper {
	return &Scraper{
		timeout:    timeout,
		maxEntries: maxEntries,
	}
}

// financial context appended to every feed query to bias results toward
// market news
const querySuffix = "+stock+OR+earnings+OR+market+OR+company+OR+finance+OR+shares"

// ScrapeGoogleNews fetches raw headline records for a search query. Records
// with an unparseable publish timestamp keep an empty calendar date; that is
// a per-row condition, never a fetch failure.
func (s *Scraper) ScrapeGoogleNews(ctx context.Context, query string) ([]types.HeadlineRecord, error) {
	records := []types.HeadlineRecord{}

	c := colly.NewCollector(
		colly.AllowedDomains("news.google.com"),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnXML("//rss/channel/item", func(e *colly.XMLElement) {
		if len(records) >= s.maxEntries {
			return
		}

		title := strings.TrimSpace(e.ChildText("title"))
		if title == "" {
			// Some feed items only carry the headline inside the HTML
			// description payload.
			title = textFromHTML(e.ChildText("description"))
		}
		if title == "" {
			return
		}

		published := strings.TrimSpace(e.ChildText("pubDate"))
		records = append(records, types.HeadlineRecord{
			Title:     title,
			Link:      strings.TrimSpace(e.ChildText("link")),
			Published: published,
			Date:      parsePublished(published),
			Source:    "Google",
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Feed scraping error", err, "url", r.Request.URL.String())
	})

	feedURL := fmt.Sprintf(
		"https://news.google.com/rss/search?q=(%s)%s&hl=en-US&gl=US&ceid=US:en",
		url.QueryEscape(query), querySuffix,
	)

	if err := c.Visit(feedURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", feedURL, err)
	}
	c.Wait()

	return records, nil
}

// publishedFormats are tried in order when parsing feed timestamps.
var publishedFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parsePublished converts a raw source timestamp into the canonical
// "2006-01-02 15:04:05" form (UTC). Unparseable inputs yield "" — a null
// calendar date, never an error.
func parsePublished(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range publishedFormats {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC().Format("2006-01-02 15:04:05")
		}
	}
	return ""
}

// textFromHTML extracts the visible text of an HTML fragment.
func textFromHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

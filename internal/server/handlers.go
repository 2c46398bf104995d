package server

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"news-sentiment-pipeline/internal/sentiment"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
)

// Extreme score cutoffs. Scores are model confidences in [0,1]; values this
// close to the edges are the headlines worth a human look.
const (
	extremeHigh = 0.95
	extremeLow  = 0.05
)

// tickerSummary is the public subset of the registry entry. Region and market
// cap stay internal; they drive filters, not listings.
type tickerSummary struct {
	Ticker string `json:"ticker"`
	Query  string `json:"query"`
	Sector string `json:"sector"`
	Type   string `json:"type"`
}

func (s *Server) handleTickers(c *gin.Context) {
	out := make([]tickerSummary, 0, len(s.registry.Tickers()))
	for _, t := range s.registry.Tickers() {
		out = append(out, tickerSummary{Ticker: t.Symbol, Query: t.Query, Sector: t.Sector, Type: t.Type})
	}
	c.JSON(http.StatusOK, gin.H{"tickers": out})
}

func (s *Server) handleTickersFull(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickers": s.registry.Tickers()})
}

// loadUnified answers the common error cases for table-backed handlers. The
// boolean reports whether the handler should continue.
func (s *Server) loadUnified(c *gin.Context) (*table.Table, bool) {
	t, err := s.unified()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unified table not available yet"})
		return nil, false
	}
	return t, true
}

// tickerParam validates an optional ticker query parameter against the
// registry. Unknown tickers are a client error.
func (s *Server) tickerParam(c *gin.Context, required bool) (string, bool) {
	raw := c.Query("ticker")
	if raw == "" {
		if required {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ticker parameter is required"})
			return "", false
		}
		return "", true
	}
	sym := store.NormalizeSymbol(raw)
	if !s.registry.Has(sym) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown ticker: " + raw})
		return "", false
	}
	return sym, true
}

func (s *Server) handleNewsTable(c *gin.Context) {
	t, ok := s.loadUnified(c)
	if !ok {
		return
	}
	sym, ok := s.tickerParam(c, false)
	if !ok {
		return
	}

	sector := c.Query("sector")
	region := c.Query("region")
	typ := c.Query("type")
	marketCap := c.Query("marketCap")
	start := c.Query("start")
	end := c.Query("end")

	var rows []table.Row
	for _, r := range t.Rows {
		if sym != "" && r["ticker"] != sym {
			continue
		}
		if sector != "" || region != "" || typ != "" || marketCap != "" {
			meta, known := s.registry.Lookup(r["ticker"])
			if !known {
				continue
			}
			if sector != "" && !strings.EqualFold(meta.Sector, sector) {
				continue
			}
			if region != "" && !strings.EqualFold(meta.Region, region) {
				continue
			}
			if typ != "" && !strings.EqualFold(meta.Type, typ) {
				continue
			}
			if marketCap != "" && !strings.EqualFold(meta.MarketCap, marketCap) {
				continue
			}
		}
		d := calendarDate(r["date"])
		if start != "" && (d == "" || d < start) {
			continue
		}
		if end != "" && (d == "" || d > end) {
			continue
		}
		rows = append(rows, r)
	}

	c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
}

type dateAggregate struct {
	Date   string             `json:"date"`
	Close  string             `json:"close"`
	Scores map[string]float64 `json:"scores"`
}

func (s *Server) handleSentimentOverTime(c *gin.Context) {
	t, ok := s.loadUnified(c)
	if !ok {
		return
	}
	sym, ok := s.tickerParam(c, true)
	if !ok {
		return
	}

	models := scoreModels(t)
	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)
	closes := make(map[string]string)

	for _, r := range t.Rows {
		if r["ticker"] != sym {
			continue
		}
		d := calendarDate(r["date"])
		if d == "" {
			continue
		}
		if r["close"] != "" {
			closes[d] = r["close"]
		}
		for _, m := range models {
			if r[sentiment.LabelColumn(m)] == sentiment.ErrorLabel {
				continue
			}
			v, err := strconv.ParseFloat(r[sentiment.ScoreColumn(m)], 64)
			if err != nil {
				continue
			}
			if sums[d] == nil {
				sums[d] = make(map[string]float64)
				counts[d] = make(map[string]int)
			}
			sums[d][m] += v
			counts[d][m]++
		}
	}

	dates := make([]string, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]dateAggregate, 0, len(dates))
	for _, d := range dates {
		agg := dateAggregate{Date: d, Close: closes[d], Scores: make(map[string]float64, len(models))}
		for m, sum := range sums[d] {
			agg.Scores[m] = sum / float64(counts[d][m])
		}
		out = append(out, agg)
	}

	c.JSON(http.StatusOK, gin.H{"ticker": sym, "series": out})
}

// handleModelComparison returns the raw per-row score of every model for one
// ticker, so the models can be charted against each other headline by
// headline. Rows where any model errored or has no usable score are dropped.
func (s *Server) handleModelComparison(c *gin.Context) {
	t, ok := s.loadUnified(c)
	if !ok {
		return
	}
	sym, ok := s.tickerParam(c, true)
	if !ok {
		return
	}

	models := scoreModels(t)
	out := make([]gin.H, 0)
	for _, r := range t.Rows {
		if r["ticker"] != sym || r["date"] == "" {
			continue
		}
		row := gin.H{"ticker": sym, "date": r["date"]}
		usable := true
		for _, m := range models {
			if r[sentiment.LabelColumn(m)] == sentiment.ErrorLabel {
				usable = false
				break
			}
			v, err := strconv.ParseFloat(r[sentiment.ScoreColumn(m)], 64)
			if err != nil {
				usable = false
				break
			}
			row[sentiment.ScoreColumn(m)] = v
		}
		if usable {
			out = append(out, row)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ticker": sym, "rows": out})
}

type extremeScore struct {
	Ticker string  `json:"ticker"`
	Date   string  `json:"date"`
	Title  string  `json:"title"`
	Model  string  `json:"model"`
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
}

func (s *Server) handleExtremeScores(c *gin.Context) {
	t, ok := s.loadUnified(c)
	if !ok {
		return
	}
	sym, ok := s.tickerParam(c, false)
	if !ok {
		return
	}

	start := c.Query("start")
	end := c.Query("end")

	models := scoreModels(t)
	var out []extremeScore
	for _, r := range t.Rows {
		if sym != "" && r["ticker"] != sym {
			continue
		}
		d := calendarDate(r["date"])
		if start != "" && (d == "" || d < start) {
			continue
		}
		if end != "" && (d == "" || d > end) {
			continue
		}
		for _, m := range models {
			label := r[sentiment.LabelColumn(m)]
			if label == "" || label == sentiment.ErrorLabel {
				continue
			}
			v, err := strconv.ParseFloat(r[sentiment.ScoreColumn(m)], 64)
			if err != nil {
				continue
			}
			if v >= extremeHigh || v <= extremeLow {
				out = append(out, extremeScore{
					Ticker: r["ticker"],
					Date:   calendarDate(r["date"]),
					Title:  r["title"],
					Model:  m,
					Label:  label,
					Score:  v,
				})
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(out), "scores": out})
}

func calendarDate(ts string) string {
	if len(ts) < 10 {
		return ""
	}
	return ts[:10]
}

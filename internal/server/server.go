// Package server exposes the read-only query API over the unified table. The
// server never mutates pipeline data; it reads the unified CSV and serves
// aggregations of it.
package server

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
)

// Server serves the query API. The unified table is cached in memory and
// reloaded when the file on disk changes, so a finished pipeline run shows up
// without a restart.
type Server struct {
	cfg      *store.Config
	registry *store.Registry

	mu      sync.Mutex
	cached  *table.Table
	modTime time.Time
}

// New creates the API server.
func New(cfg *store.Config, registry *store.Registry) *Server {
	return &Server{cfg: cfg, registry: registry}
}

// Router builds the gin router with all query routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/tickers", s.handleTickers)
		api.GET("/tickers/full", s.handleTickersFull)
		api.GET("/news-table", s.handleNewsTable)
		api.GET("/sentiment-over-time", s.handleSentimentOverTime)
		api.GET("/model-comparison", s.handleModelComparison)
		api.GET("/extreme-scores", s.handleExtremeScores)
	}

	return r
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	return s.Router().Run(s.cfg.Server.Addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// unified returns the cached unified table, reloading it when the file
// changed. A missing file returns nil; handlers answer 404 for that.
func (s *Server) unified() (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.cfg.UnifiedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if s.cached != nil && info.ModTime().Equal(s.modTime) {
		return s.cached, nil
	}

	t, err := table.ReadFile(s.cfg.UnifiedPath())
	if err != nil {
		return nil, err
	}
	s.cached = t
	s.modTime = info.ModTime()
	return t, nil
}

// scoreModels extracts the model names present in the unified table from its
// score columns.
func scoreModels(t *table.Table) []string {
	var models []string
	for _, c := range t.Columns {
		if name, ok := strings.CutPrefix(c, "score_"); ok {
			models = append(models, name)
		}
	}
	return models
}

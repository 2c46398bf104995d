package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one sentiment model served by an external inference
// provider.
type ModelConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	TickersFile string `yaml:"tickers_file"`
	DataDir     string `yaml:"data_dir"`
	OutputDir   string `yaml:"output_dir"`

	Scraper struct {
		MaxEntries     int  `yaml:"max_entries"`
		TimeoutSeconds int  `yaml:"timeout_seconds"`
		FMPEnabled     bool `yaml:"fmp_enabled"`
		FMPNewsLimit   int  `yaml:"fmp_news_limit"`
	} `yaml:"scraper"`

	Keywords struct {
		BaseList       []string `yaml:"base_list"`
		LearnedFile    string   `yaml:"learned_file"`
		MaxFeatures    int      `yaml:"max_features"`
		PruneThreshold int      `yaml:"prune_threshold"`
	} `yaml:"keywords"`

	Sentiment struct {
		Models     []ModelConfig `yaml:"models"`
		MaxTextLen int           `yaml:"max_text_len"`
		Workers    int           `yaml:"workers"`
	} `yaml:"sentiment"`

	Prices struct {
		BaseURL        string `yaml:"base_url"`
		BufferDays     int    `yaml:"buffer_days"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"prices"`

	Validation struct {
		AllowedLatenessDays int      `yaml:"allowed_lateness_days"`
		CriticalColumns     []string `yaml:"critical_columns"`
	} `yaml:"validation"`

	Alerts struct {
		Mode    string `yaml:"mode"` // LOG or EMAIL
		Subject string `yaml:"subject"`
	} `yaml:"alerts"`

	Schedule string `yaml:"schedule"` // cron expression for daemon mode

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

func (c *Config) Validate() error {
	if c.TickersFile == "" {
		return errors.New("tickers_file cannot be empty")
	}
	if len(c.Sentiment.Models) == 0 {
		return errors.New("sentiment.models cannot be empty")
	}
	for _, m := range c.Sentiment.Models {
		if m.Name == "" {
			return errors.New("sentiment model name cannot be empty")
		}
	}
	if c.Alerts.Mode != "LOG" && c.Alerts.Mode != "EMAIL" {
		return fmt.Errorf("invalid alerts.mode '%s': must be 'LOG' or 'EMAIL'", c.Alerts.Mode)
	}
	if c.Validation.AllowedLatenessDays < 0 {
		return fmt.Errorf("validation.allowed_lateness_days must be >= 0, got %d", c.Validation.AllowedLatenessDays)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.OutputDir == "" {
		c.OutputDir = "outputs"
	}
	if c.Scraper.MaxEntries == 0 {
		c.Scraper.MaxEntries = 100
	}
	if c.Scraper.TimeoutSeconds == 0 {
		c.Scraper.TimeoutSeconds = 30
	}
	if c.Scraper.FMPNewsLimit == 0 {
		c.Scraper.FMPNewsLimit = 10
	}
	if c.Keywords.LearnedFile == "" {
		c.Keywords.LearnedFile = "config/learned_keywords.txt"
	}
	if c.Keywords.MaxFeatures == 0 {
		c.Keywords.MaxFeatures = 100
	}
	if c.Sentiment.MaxTextLen == 0 {
		c.Sentiment.MaxTextLen = 512
	}
	if c.Sentiment.Workers == 0 {
		c.Sentiment.Workers = 4
	}
	if c.Prices.BaseURL == "" {
		c.Prices.BaseURL = "https://financialmodelingprep.com"
	}
	if c.Prices.BufferDays == 0 {
		c.Prices.BufferDays = 3
	}
	if c.Prices.TimeoutSeconds == 0 {
		c.Prices.TimeoutSeconds = 30
	}
	if c.Validation.AllowedLatenessDays == 0 {
		c.Validation.AllowedLatenessDays = 1
	}
	if len(c.Validation.CriticalColumns) == 0 {
		c.Validation.CriticalColumns = []string{"date", "close", "nextdayclose", "nextdayreturn"}
	}
	if c.Alerts.Mode == "" {
		c.Alerts.Mode = "LOG"
	}
	if c.Alerts.Subject == "" {
		c.Alerts.Subject = "Pipeline Alert Summary"
	}
	if c.Schedule == "" {
		c.Schedule = "30 6 * * *"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// Derived paths. Per-ticker cumulative tables keep the original layout so a
// run is resumable from disk alone.

func (c *Config) RawNewsDir() string      { return filepath.Join(c.DataDir, "raw_news") }
func (c *Config) SkippedDir() string      { return filepath.Join(c.DataDir, "skipped_raw_news") }
func (c *Config) ManualReviewDir() string { return filepath.Join(c.DataDir, "manual_review") }
func (c *Config) SentimentDir() string    { return filepath.Join(c.OutputDir, "results", "sentiment") }
func (c *Config) MergedDir() string       { return filepath.Join(c.OutputDir, "results", "merged") }
func (c *Config) UnifiedPath() string {
	return filepath.Join(c.OutputDir, "results", "merged_sentiment_price.csv")
}
func (c *Config) LogsDir() string    { return filepath.Join(c.OutputDir, "logs") }
func (c *Config) ArchiveDir() string { return filepath.Join(c.OutputDir, "archives") }
func (c *Config) SnapshotDBPath() string {
	return filepath.Join(c.LogsDir(), "snapshots.db")
}
func (c *Config) RunLogPath() string {
	return filepath.Join(c.LogsDir(), "pipeline_run.log")
}
func (c *Config) ValidationLogPath() string {
	return filepath.Join(c.LogsDir(), "validation_log.csv")
}
func (c *Config) RescueLogPath() string {
	return filepath.Join(c.LogsDir(), "rescue_log.csv")
}

// Per-ticker table paths.

func (c *Config) NewsPath(symbol string) string {
	return filepath.Join(c.RawNewsDir(), symbol+"_news.csv")
}
func (c *Config) SkippedPath(symbol string) string {
	return filepath.Join(c.SkippedDir(), symbol+"_skipped.csv")
}
func (c *Config) FlaggedPath(symbol string) string {
	return filepath.Join(c.ManualReviewDir(), symbol+"_flagged_relevant.csv")
}
func (c *Config) SentimentPath(symbol string) string {
	return filepath.Join(c.SentimentDir(), symbol+"_sentiment.csv")
}
func (c *Config) MergedPath(symbol string) string {
	return filepath.Join(c.MergedDir(), "merged_"+symbol+".csv")
}

// EnsureDirectories creates every directory the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.RawNewsDir(), c.SkippedDir(), c.ManualReviewDir(),
		c.SentimentDir(), c.MergedDir(), c.LogsDir(), c.ArchiveDir(),
		filepath.Dir(c.Keywords.LearnedFile),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return nil
}

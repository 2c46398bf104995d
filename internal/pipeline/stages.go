package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"news-sentiment-pipeline/internal/classify"
	"news-sentiment-pipeline/internal/logger"
	"news-sentiment-pipeline/internal/news"
	"news-sentiment-pipeline/internal/prices"
	"news-sentiment-pipeline/internal/rescue"
	"news-sentiment-pipeline/internal/sentiment"
	"news-sentiment-pipeline/internal/snapshot"
	"news-sentiment-pipeline/internal/store"
	"news-sentiment-pipeline/internal/table"
	"news-sentiment-pipeline/internal/types"
	"news-sentiment-pipeline/internal/unify"
	"news-sentiment-pipeline/internal/validate"
)

// Pipeline wires the stage services together for one process. Validation
// entries and row diffs flow between the late stages through the struct.
type Pipeline struct {
	cfg      *store.Config
	registry *store.Registry
	snaps    *snapshot.Store

	ingest    *news.Service
	scorer    *sentiment.Scorer
	rescuer   *rescue.Service
	merger    *prices.Merger
	unifier   *unify.Service
	validator *validate.Validator
	drift     *validate.Drift

	priceKey string
	runDate  string

	lastEntries     []validate.Entry
	rowDiffs        map[string]types.RowDiff
	archiveFailures []string
}

// New assembles the pipeline services.
func New(cfg *store.Config, registry *store.Registry, snaps *snapshot.Store) *Pipeline {
	scorer := sentiment.NewScorer(cfg)
	priceKey := os.Getenv("FMP_API_KEY")
	priceClient := prices.NewClient(cfg.Prices.BaseURL, priceKey,
		time.Duration(cfg.Prices.TimeoutSeconds)*time.Second)

	return &Pipeline{
		cfg:       cfg,
		registry:  registry,
		snaps:     snaps,
		ingest:    news.NewService(cfg, registry),
		scorer:    scorer,
		rescuer:   rescue.NewService(cfg, registry, scorer),
		merger:    prices.NewMerger(cfg, priceClient),
		unifier:   unify.NewService(cfg),
		validator: validate.NewValidator(cfg),
		drift:     validate.NewDrift(cfg, snaps),
		priceKey:  priceKey,
	}
}

// Stages returns the daily run in execution order.
func (p *Pipeline) Stages() []Stage {
	return []Stage{
		{Name: "scrape_news", Run: p.runScrape},
		{Name: "score_sentiment", Run: p.runScore},
		{Name: "merge_prices", Run: p.runMergePrices},
		{Name: "update_next_day", Run: p.runUpdateNextDay},
		{Name: "apply_manual_flags", Run: p.runManualFlags},
		{Name: "learn_keywords", Run: p.runLearnKeywords},
		{Name: "auto_rescue", Run: p.runAutoRescue},
		{Name: "prune_keywords", Run: p.runPruneKeywords},
		{Name: "validate", Run: p.runValidate},
		{Name: "record_drift", Run: p.runDrift},
		{Name: "archive", Run: p.runArchive},
		{Name: "send_alerts", Run: p.runAlerts},
		{Name: "unify", Run: p.runUnify},
	}
}

// Run executes one full daily batch.
func (p *Pipeline) Run(ctx context.Context) error {
	p.runDate = time.Now().UTC().Format("2006-01-02")
	p.lastEntries = nil
	p.rowDiffs = nil
	p.archiveFailures = nil
	return NewRunner(p.cfg, p.Stages()).Run(ctx)
}

func (p *Pipeline) runScrape(ctx context.Context) error {
	kw, err := p.activeKeywords()
	if err != nil {
		return err
	}
	return p.ingest.Run(ctx, kw)
}

func (p *Pipeline) runScore(ctx context.Context) error {
	return p.scorer.Run(ctx, p.registry.Symbols())
}

func (p *Pipeline) runMergePrices(ctx context.Context) error {
	if p.priceKey == "" {
		logger.Warn(ctx, "FMP_API_KEY not set, skipping price merge")
		return nil
	}
	return p.merger.Run(ctx, p.registry.Symbols())
}

func (p *Pipeline) runUpdateNextDay(ctx context.Context) error {
	return p.unifier.UpdateNextDay(ctx, p.registry.Symbols())
}

func (p *Pipeline) runManualFlags(ctx context.Context) error {
	return p.rescuer.ApplyManualFlags(ctx)
}

// runLearnKeywords grows the learned keyword file from the reviewer-flagged
// corpus. Only human-confirmed headlines teach new terms; the broader relevant
// corpus is consulted at prune time, not here. An empty flagged corpus keeps
// the existing file untouched.
func (p *Pipeline) runLearnKeywords(ctx context.Context) error {
	titles, err := p.flaggedTitles()
	if err != nil {
		return err
	}
	learned := classify.Learn(titles, p.cfg.Keywords.MaxFeatures)
	if learned.Len() == 0 {
		logger.Warn(ctx, "No flagged titles to learn from, keeping existing learned keywords")
		return nil
	}

	existing, err := classify.LoadKeywordFile(p.cfg.Keywords.LearnedFile)
	if err != nil {
		return err
	}
	merged := existing.Union(learned)
	if err := merged.SaveFile(p.cfg.Keywords.LearnedFile); err != nil {
		return err
	}
	logger.Info(ctx, "Keywords learned",
		"new", learned.Len(), "total", merged.Len(), "titles", len(titles))
	return nil
}

func (p *Pipeline) runAutoRescue(ctx context.Context) error {
	kw, err := p.activeKeywords()
	if err != nil {
		return err
	}
	return p.rescuer.AutoRescue(ctx, kw)
}

// runPruneKeywords drops learned keywords no longer backed by any live
// headline. The base list is configuration, never pruned.
func (p *Pipeline) runPruneKeywords(ctx context.Context) error {
	learned, err := classify.LoadKeywordFile(p.cfg.Keywords.LearnedFile)
	if err != nil {
		return err
	}
	if learned.Len() == 0 {
		return nil
	}

	titles, err := p.relevantTitles()
	if err != nil {
		return err
	}
	if len(titles) == 0 {
		logger.Warn(ctx, "Empty corpus, skipping keyword prune")
		return nil
	}

	kept, removed := classify.Prune(learned, strings.Join(titles, "\n"), p.cfg.Keywords.PruneThreshold)
	if len(removed) == 0 {
		return nil
	}
	if err := kept.SaveFile(p.cfg.Keywords.LearnedFile); err != nil {
		return err
	}
	logger.Info(ctx, "Keywords pruned", "removed", len(removed), "kept", kept.Len())
	return nil
}

func (p *Pipeline) runValidate(ctx context.Context) error {
	entries, err := p.validator.Run(ctx, p.registry.Symbols())
	if err != nil {
		return err
	}
	p.lastEntries = entries
	return nil
}

func (p *Pipeline) runDrift(ctx context.Context) error {
	diffs, err := p.drift.Run(ctx, p.registry.Symbols(), p.runDate)
	if err != nil {
		return err
	}
	p.rowDiffs = diffs
	return nil
}

func (p *Pipeline) runArchive(ctx context.Context) error {
	failures, err := validate.Archive(ctx, p.cfg, p.registry.Symbols(), p.runDate)
	if err != nil {
		return err
	}
	p.archiveFailures = failures
	return nil
}

func (p *Pipeline) runAlerts(ctx context.Context) error {
	sink := validate.NewSink(ctx, p.cfg)
	lines := validate.AlertLines(p.lastEntries, p.rowDiffs)
	lines = append(lines, p.archiveFailures...)
	return validate.SendAlerts(ctx, sink, p.cfg.Alerts.Subject, lines)
}

func (p *Pipeline) runUnify(ctx context.Context) error {
	return p.unifier.Run(ctx, p.registry.Symbols())
}

// activeKeywords loads the effective keyword set: the configured base list
// plus the learned file.
func (p *Pipeline) activeKeywords() (*classify.KeywordSet, error) {
	learned, err := classify.LoadKeywordFile(p.cfg.Keywords.LearnedFile)
	if err != nil {
		return nil, err
	}
	return classify.NewKeywordSet(p.cfg.Keywords.BaseList...).Union(learned), nil
}

// flaggedTitles collects every title across the per-ticker manual review
// flag files.
func (p *Pipeline) flaggedTitles() ([]string, error) {
	var titles []string
	for _, sym := range p.registry.Symbols() {
		flagged, err := table.ReadRecords[types.HeadlineRecord](p.cfg.FlaggedPath(sym))
		if err != nil {
			return nil, err
		}
		for _, h := range flagged {
			if h.Title != "" {
				titles = append(titles, h.Title)
			}
		}
	}
	return titles, nil
}

// relevantTitles collects every title across the per-ticker relevant tables.
func (p *Pipeline) relevantTitles() ([]string, error) {
	var titles []string
	for _, sym := range p.registry.Symbols() {
		t, _, err := table.ReadFileIfExists(p.cfg.NewsPath(sym))
		if err != nil {
			return nil, err
		}
		for _, r := range t.Rows {
			if r["title"] != "" {
				titles = append(titles, r["title"])
			}
		}
	}
	return titles, nil
}

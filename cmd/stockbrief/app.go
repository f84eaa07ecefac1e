package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/TobiSchelling/StockBrief/internal/alert"
	"github.com/TobiSchelling/StockBrief/internal/analyst"
	"github.com/TobiSchelling/StockBrief/internal/chart"
	"github.com/TobiSchelling/StockBrief/internal/compose"
	"github.com/TobiSchelling/StockBrief/internal/config"
	"github.com/TobiSchelling/StockBrief/internal/database"
	"github.com/TobiSchelling/StockBrief/internal/health"
	"github.com/TobiSchelling/StockBrief/internal/llm"
	"github.com/TobiSchelling/StockBrief/internal/locale"
	"github.com/TobiSchelling/StockBrief/internal/logger"
	"github.com/TobiSchelling/StockBrief/internal/marketdata"
	"github.com/TobiSchelling/StockBrief/internal/news"
	"github.com/TobiSchelling/StockBrief/internal/pipeline"
	"github.com/TobiSchelling/StockBrief/internal/sectioncache"
	"github.com/TobiSchelling/StockBrief/internal/validate"
)

// Dependency names the checker knows besides the configured HTTP probes.
const (
	depMarketData = "market_data"
	depLLM        = "llm"
	depArchive    = "archive"
)

// app holds the components built from the config for one command.
type app struct {
	cfg      *config.Config
	loc      *locale.Locale
	db       *database.DB
	market   *marketdata.Client
	provider llm.Provider
	checker  *health.Checker
	queue    *alert.Queue
	recorder *alert.Recorder
}

// newApp opens the archive and builds the collaborators shared by commands.
func newApp() (*app, error) {
	loc, err := locale.Get(cfg.Locale)
	if err != nil {
		return nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loc: loc, db: db}
	a.market = marketdata.NewClient(marketdata.Options{
		BaseURL: cfg.MarketData.BaseURL,
		Suffix:  cfg.MarketData.Suffix,
		Timeout: cfg.MarketData.Timeout,
	})

	tg := cfg.Alerts.Telegram
	sink := alert.NewSink(tg.BotToken, tg.ChatID, cfg.Alerts.Timeout)
	a.queue = alert.NewQueue(sink, cfg.Alerts.QueueSize, cfg.Alerts.Timeout)
	a.recorder = alert.NewRecorder(a.queue, db)

	a.checker = health.NewChecker(cfg.Health.Timeout)
	a.checker.Register(depMarketData, health.ProbeFunc(a.market.Ping))
	a.checker.Register(depArchive, db)
	a.checker.Register(depLLM, health.ProbeFunc(func(context.Context) error {
		if a.llmProvider() == nil {
			return errors.New("no LLM provider available")
		}
		return nil
	}))
	client := &http.Client{Timeout: cfg.Health.Timeout}
	for _, p := range cfg.Health.Probes {
		a.checker.Register(p.Name, health.HTTPProbe(client, p.URL))
	}
	return a, nil
}

// llmProvider resolves the provider on first use; probing Ollama costs a request.
func (a *app) llmProvider() llm.Provider {
	if a.provider != nil {
		return a.provider
	}
	s := a.cfg.Summarization
	p := llm.CreateProvider(llm.Settings{
		Provider:      s.Provider,
		Model:         s.Model,
		OllamaURL:     s.OllamaURL,
		OpenAIModel:   s.OpenAIModel,
		OpenAIBaseURL: s.OpenAIBaseURL,
		APIKeyEnv:     s.APIKeyEnv,
		Temperature:   s.Temperature,
		Timeout:       s.Timeout,
	})
	if p == nil {
		return nil
	}
	a.provider = llm.NewRateLimited(p, s.Provider, llm.RateLimit{
		RequestsPerMinute: s.RequestsPerMinute,
		Burst:             s.Burst,
		MaxRetries:        s.MaxRetries,
		BaseDelay:         2 * time.Second,
	})
	return a.provider
}

func (a *app) validator() *validate.Validator {
	return validate.New(a.loc, a.cfg.Validation.MinLength, a.cfg.Validation.ExtraMarkers)
}

func (a *app) pipeline() *pipeline.Pipeline {
	provider := a.llmProvider()
	if provider == nil {
		logger.Log.Warn("no LLM provider available, every section will fail")
	}

	feeds := make([]news.FeedConfig, 0, len(a.cfg.News.Feeds))
	for _, f := range a.cfg.News.Feeds {
		feeds = append(feeds, news.FeedConfig{URL: f.URL, Name: f.Name})
	}
	newsOpts := news.Options{
		Feeds:        feeds,
		Language:     a.cfg.News.NewsAPI.Language,
		DaysBack:     a.cfg.News.DaysBack,
		MaxArticles:  a.cfg.News.MaxArticles,
		FetchContent: a.cfg.News.FetchContent,
		FetchTimeout: a.cfg.MarketData.Timeout,
	}
	if a.cfg.News.NewsAPI.Enabled {
		newsOpts.NewsAPIKeyEnv = a.cfg.News.NewsAPI.APIKeyEnv
	}

	writer := analyst.New(provider, a.market, news.NewCollector(newsOpts), a.loc, analyst.Options{
		IndexSymbols: a.cfg.MarketData.IndexSymbols,
		MarketQuery:  a.cfg.News.MarketQuery,
		HistoryDays:  a.cfg.MarketData.HistoryDays,
		MaxTokens:    a.cfg.Summarization.MaxTokens,
	})

	key := sectioncache.DefaultKey
	if a.cfg.Cache.KeyByDate {
		key = sectioncache.DateKey
	}

	deps := pipeline.Deps{
		Sections:  writer,
		Market:    writer,
		Synth:     compose.New(provider, a.loc, a.cfg.Summarization.MaxTokens),
		Health:    a.checker,
		Alerts:    a.recorder,
		Validator: a.validator(),
		Cache:     sectioncache.New(key),
		Locale:    a.loc,
	}
	if a.cfg.Charts.Enabled {
		deps.Charts = chart.NewSVGRenderer(a.market)
	}

	return pipeline.New(deps, pipeline.Options{
		Required:       a.cfg.Health.Required,
		SectionTimeout: a.cfg.Pipeline.SectionTimeout,
		PriceTolerance: a.cfg.Validation.PriceTolerance,
		Charts: chart.Options{
			Days:   a.cfg.Charts.Days,
			Width:  a.cfg.Charts.Width,
			Height: a.cfg.Charts.Height,
		},
	})
}

// close flushes queued alerts before the archive goes away.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Alerts.Timeout+time.Second)
	defer cancel()
	if err := a.queue.Close(ctx); err != nil {
		logger.Log.Warnf("alerts still queued at exit: %v", err)
	}
	a.db.Close()
}

func openDB() (*database.DB, error) {
	db, err := database.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

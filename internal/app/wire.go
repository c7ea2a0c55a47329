package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deusflow/newsky/internal/bluesky"
	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/embed"
	"github.com/deusflow/newsky/internal/gemini"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/metrics"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/publisher"
	"github.com/deusflow/newsky/internal/ratelimit"
	"github.com/deusflow/newsky/internal/scraper"
	"github.com/deusflow/newsky/internal/source"
	"github.com/deusflow/newsky/internal/storage"
)

// LoadPipeline reads the named pipeline from the sources file.
func LoadPipeline(cfg *config.Config) (*config.Pipeline, error) {
	sf, err := config.LoadSources(cfg.SourcesConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	return sf.Pipeline(cfg.Pipeline)
}

// NewScraper returns the shared HTTP client for feeds, pages and images.
func NewScraper(cfg *config.Config) *scraper.Client {
	return scraper.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, scraper.DefaultProfile())
}

// NewSources builds the adapters of a pipeline.
func NewSources(cfg *config.Config, p *config.Pipeline) ([]news.Source, error) {
	return source.FromPipeline(p, NewScraper(cfg))
}

// Build assembles a ready-to-run pipeline. The returned close function
// releases the store and the Gemini client.
func Build(ctx context.Context, cfg *config.Config, p *config.Pipeline, dryRun bool) (*Pipeline, func(), error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	web := scraper.NewClient(httpClient, scraper.DefaultProfile())

	sources, err := source.FromPipeline(p, web)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL, cfg.PostedPath(p), p.Name, cfg.PostedCap)
	if err != nil {
		return nil, nil, fmt.Errorf("opening posted store: %w", err)
	}

	closers := []func(){func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close posted store", "error", err)
		}
	}}

	var describer embed.Describer
	var budget *ratelimit.Budget
	if cfg.GeminiAPIKey != "" {
		budget = ratelimit.NewBudget("gemini", cfg.MaxGeminiRequests)
		g, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, budget)
		if err != nil {
			logger.Warn("Gemini unavailable, using default descriptions", "error", err)
			budget = nil
		} else {
			describer = g
			closers = append(closers, g.Close)
		}
	}

	bsky := bluesky.NewClient(cfg.BlueskyHost, httpClient)
	cards := embed.NewBuilder(web, web, bsky, describer)
	pub := publisher.New(bsky, cards, publisher.Options{
		Label:        p.Label,
		Langs:        cfg.PostLangs,
		AuthAttempts: cfg.AuthAttempts,
		AuthDelay:    cfg.AuthRetryDelay,
	})

	pipeline := &Pipeline{
		Name:      p.Name,
		Sources:   sources,
		Store:     store,
		Publisher: pub,
		Credentials: publisher.Credentials{
			Identifier: cfg.BlueskyUsername,
			Password:   cfg.BlueskyAppPassword,
		},
		Delay:   cfg.PostDelay,
		DryRun:  dryRun,
		Metrics: metrics.Global,

		Descriptions: budget,
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return pipeline, closeAll, nil
}

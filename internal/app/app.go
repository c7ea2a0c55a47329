// Package app runs one posting pipeline: authenticate, fetch, filter what
// was already posted, publish the rest oldest first and remember it.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/newsky/internal/bluesky"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/metrics"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/publisher"
	"github.com/deusflow/newsky/internal/ratelimit"
	"github.com/deusflow/newsky/internal/storage"
)

// Publisher is the part of *publisher.Publisher the pipeline drives.
type Publisher interface {
	Authenticate(ctx context.Context, cred publisher.Credentials) (*bluesky.Session, error)
	Publish(ctx context.Context, session *bluesky.Session, a news.Article) bool
}

type Pipeline struct {
	Name        string
	Sources     []news.Source
	Store       storage.Store
	Publisher   Publisher
	Credentials publisher.Credentials

	// Delay is the pause after every publish attempt.
	Delay time.Duration

	// DryRun logs what would be posted without authenticating, posting or
	// saving.
	DryRun bool

	Metrics *metrics.Metrics

	// Descriptions, if set, is the budget spent on generated descriptions.
	Descriptions *ratelimit.Budget

	sleep func(ctx context.Context, d time.Duration) error
}

// Result summarizes one run.
type Result struct {
	Fetched    int
	Duplicates int
	Published  int
	Failed     int
	Described  int
}

// Run executes the pipeline once. Only an authentication failure, a held
// lock or cancellation produce an error; failed posts are logged and
// retried on the next run.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	m := p.metrics()
	defer func() { m.RecordProcessingTime(time.Since(start)) }()

	res, err := p.run(ctx)
	if p.Descriptions != nil {
		res.Described = p.Descriptions.Used()
	}
	if err != nil {
		m.SetError(err.Error())
		logger.Error("run failed", "pipeline", p.Name, "error", err)
		return res, err
	}

	m.SetLastRun()
	logger.Info("run complete",
		"pipeline", p.Name,
		"fetched", res.Fetched,
		"duplicates", res.Duplicates,
		"published", res.Published,
		"failed", res.Failed,
		"described", res.Described,
		"duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (Result, error) {
	var res Result
	m := p.metrics()

	var session *bluesky.Session
	if !p.DryRun {
		s, err := p.Publisher.Authenticate(ctx, p.Credentials)
		if err != nil {
			return res, err
		}
		session = s

		if err := p.Store.Lock(ctx); err != nil {
			return res, fmt.Errorf("locking posted store: %w", err)
		}
		defer func() {
			if err := p.Store.Unlock(); err != nil {
				logger.Warn("failed to release posted store lock", "error", err)
			}
		}()
	}

	posted, err := p.Store.Load(ctx)
	if err != nil {
		logger.Warn("posted history unavailable, continuing with what was read", "pipeline", p.Name, "error", err)
	}
	if posted == nil {
		posted = storage.NewPostedSet()
	}

	articles := news.Aggregate(ctx, p.Sources...)
	pending := news.Unseen(articles, posted.Contains)

	res.Fetched = len(articles)
	res.Duplicates = len(articles) - len(pending)
	m.AddArticlesFetched(res.Fetched)
	m.AddDuplicatesFiltered(res.Duplicates)
	logger.Info("articles to publish", "pipeline", p.Name, "fetched", res.Fetched, "new", len(pending))

	var runErr error
	for _, a := range pending {
		// Two sources can carry the same link.
		if posted.Contains(a.URL) {
			res.Duplicates++
			m.AddDuplicatesFiltered(1)
			continue
		}

		if p.DryRun {
			logger.Info("dry run: would post", "source", a.Source, "time", a.Time().Format(time.RFC3339), "title", a.Title, "url", a.URL)
			posted.Add(a.URL)
			continue
		}

		if p.Publisher.Publish(ctx, session, a) {
			posted.Add(a.URL)
			res.Published++
			m.IncrementPostsPublished()
		} else {
			res.Failed++
			m.IncrementPostsFailed()
		}

		if err := p.pause(ctx); err != nil {
			runErr = err
			break
		}
	}

	if p.DryRun {
		return res, nil
	}

	// Save even when cancelled so successful posts are remembered.
	if err := p.Store.Save(context.WithoutCancel(ctx), posted); err != nil {
		logger.Error("failed to save posted history", "pipeline", p.Name, "error", err)
	}
	return res, runErr
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.sleep != nil {
		return p.sleep(ctx, p.Delay)
	}
	return sleepContext(ctx, p.Delay)
}

func (p *Pipeline) metrics() *metrics.Metrics {
	if p.Metrics != nil {
		return p.Metrics
	}
	return metrics.Global
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

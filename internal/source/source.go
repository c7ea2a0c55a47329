// Package source holds the adapters that turn news feeds and club APIs into
// articles. Adapters never fail a run: problems are logged and yield an
// empty or partial slice.
package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/scraper"
)

// DefaultLimit is how many items each adapter takes when none is configured.
const DefaultLimit = 3

const (
	TypeRSS        = "rss"
	TypeDIFHockey  = "difhockey"
	TypeDIFFotboll = "diffotboll"
)

// Fetcher is the HTTP surface the adapters need.
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string, extra map[string]string) (*http.Response, error)
	FetchPage(ctx context.Context, rawURL string, extra map[string]string) (*scraper.Page, error)
}

// base carries what every adapter shares.
type base struct {
	name  string
	url   string
	limit int
	http  Fetcher
	now   func() time.Time
}

func newBase(def config.Source, fetcher Fetcher) base {
	limit := def.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return base{name: def.Name, url: def.URL, limit: limit, http: fetcher, now: time.Now}
}

func (b base) Name() string {
	return b.name
}

// timestamp parses raw, falling back to the fetch time with a warning.
func (b base) timestamp(raw, itemURL string) int64 {
	ts, err := ParseTimestamp(raw)
	if err != nil {
		logger.Warn("unparseable timestamp, using current time", "source", b.name, "url", itemURL, "value", raw, "error", err)
		return b.now().Unix()
	}
	return ts
}

// New builds the adapter for one configured source.
func New(def config.Source, fetcher Fetcher) (news.Source, error) {
	switch def.Type {
	case TypeRSS:
		return NewRSS(def, fetcher), nil
	case TypeDIFHockey:
		return NewDIFHockey(def, fetcher), nil
	case TypeDIFFotboll:
		return NewDIFFotboll(def, fetcher)
	default:
		return nil, fmt.Errorf("source %q: unknown type %q", def.Name, def.Type)
	}
}

// FromPipeline builds every adapter of a pipeline, in configured order.
func FromPipeline(p *config.Pipeline, fetcher Fetcher) ([]news.Source, error) {
	sources := make([]news.Source, 0, len(p.Sources))
	for _, def := range p.Sources {
		s, err := New(def, fetcher)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

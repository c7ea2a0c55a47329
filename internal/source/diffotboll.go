package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
)

type difFotbollResponse struct {
	Pages []difFotbollItem `json:"pages"`
}

// Items are articles or videos; videos use name, description and
// thumbnailUrl instead of heading, preamble and image.
type difFotbollItem struct {
	URL   string `json:"url"`
	Date  string `json:"date"`
	Image *struct {
		Src string `json:"src"`
	} `json:"image"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Heading      string `json:"heading"`
	Name         string `json:"name"`
	Preamble     string `json:"preamble"`
	Description  string `json:"description"`
}

// DIFFotboll reads the dif.se news feed API. Item URLs are site-relative.
type DIFFotboll struct {
	base
	siteURL string
}

func NewDIFFotboll(def config.Source, fetcher Fetcher) (*DIFFotboll, error) {
	site := strings.TrimRight(def.BaseURL, "/")
	if site == "" {
		u, err := url.Parse(def.URL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("source %q: cannot derive site URL from %q", def.Name, def.URL)
		}
		site = u.Scheme + "://" + u.Host
	}
	return &DIFFotboll{base: newBase(def, fetcher), siteURL: site}, nil
}

func (d *DIFFotboll) Fetch(ctx context.Context) []news.Article {
	var body difFotbollResponse
	if err := getJSON(ctx, d.http, d.url, &body); err != nil {
		logger.Error("failed to fetch news", "source", d.name, "error", err)
		return nil
	}

	items := body.Pages
	if len(items) == 0 {
		logger.Warn("no articles in response", "source", d.name)
		return nil
	}
	if len(items) > d.limit {
		items = items[:d.limit]
	}

	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		path := strings.TrimSpace(item.URL)
		if path == "" {
			logger.Warn("article without url", "source", d.name, "title", item.Heading)
			continue
		}
		link := d.siteURL + path

		// Fractional seconds vary in precision and are dropped.
		date, _, _ := strings.Cut(item.Date, ".")

		articles = append(articles, news.Article{
			URL:         link,
			Timestamp:   d.timestamp(date, link),
			Source:      d.name,
			Title:       firstNonEmpty(item.Heading, item.Name),
			Description: firstNonEmpty(item.Preamble, item.Description),
			ImageURL:    d.image(item),
		})
	}

	logger.Info("fetched news", "source", d.name, "items", len(articles))
	return articles
}

func (d *DIFFotboll) image(item difFotbollItem) string {
	if item.Image != nil && strings.TrimSpace(item.Image.Src) != "" {
		return strings.TrimSpace(item.Image.Src)
	}
	return strings.TrimSpace(item.ThumbnailURL)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

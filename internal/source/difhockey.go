package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/scraper"
)

const difHockeyArticleURL = "https://www.difhockey.se/article/%s/view"

type difHockeyResponse struct {
	Data struct {
		ArticleItems []difHockeyItem `json:"articleItems"`
	} `json:"data"`
}

type difHockeyItem struct {
	ID            json.RawMessage `json:"id"`
	Permalink     string          `json:"permalink"`
	PublishedDate string          `json:"publishedDate"`
	ImageURL      string          `json:"imageUrl"`
	Title         string          `json:"title"`
	Preamble      string          `json:"preamble"`
}

// DIFHockey reads the difhockey.se site-news API.
type DIFHockey struct {
	base
}

func NewDIFHockey(def config.Source, fetcher Fetcher) *DIFHockey {
	return &DIFHockey{base: newBase(def, fetcher)}
}

func (d *DIFHockey) Fetch(ctx context.Context) []news.Article {
	var body difHockeyResponse
	if err := getJSON(ctx, d.http, d.url, &body); err != nil {
		logger.Error("failed to fetch news", "source", d.name, "error", err)
		return nil
	}

	items := body.Data.ArticleItems
	if len(items) == 0 {
		logger.Warn("no articles in response", "source", d.name)
		return nil
	}
	if len(items) > d.limit {
		items = items[:d.limit]
	}

	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		link := d.permalink(item)
		if link == "" {
			logger.Warn("article without permalink or id", "source", d.name, "title", item.Title)
			continue
		}

		// Only the date part is meaningful; the API's clock times are unreliable.
		date, _, _ := strings.Cut(item.PublishedDate, "T")

		articles = append(articles, news.Article{
			URL:         link,
			Timestamp:   d.timestamp(date, link),
			Source:      d.name,
			Title:       strings.TrimSpace(item.Title),
			Description: strings.TrimSpace(item.Preamble),
			ImageURL:    strings.TrimSpace(item.ImageURL),
		})
	}

	logger.Info("fetched news", "source", d.name, "items", len(articles))
	return articles
}

// permalink returns the article URL, always ending in /view.
func (d *DIFHockey) permalink(item difHockeyItem) string {
	link := strings.TrimSpace(item.Permalink)
	if link == "" {
		id := strings.Trim(strings.TrimSpace(string(item.ID)), `"`)
		if id == "" || id == "null" {
			return ""
		}
		link = fmt.Sprintf(difHockeyArticleURL, id)
	}
	if !strings.HasSuffix(link, "/view") {
		link += "/view"
	}
	return link
}

func getJSON(ctx context.Context, fetcher Fetcher, rawURL string, out any) error {
	resp, err := fetcher.Get(ctx, rawURL, scraper.AcceptJSON, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}
	return nil
}

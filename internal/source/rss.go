package source

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsky/internal/config"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/scraper"
)

// RSS reads an RSS or Atom feed. With scrapePage set, each item's page is
// fetched for a better image and description.
type RSS struct {
	base
	referer    string
	accept     string
	scrapePage bool
	parser     *gofeed.Parser
}

func NewRSS(def config.Source, fetcher Fetcher) *RSS {
	accept := def.Accept
	if accept == "" {
		accept = scraper.AcceptFeed
	}
	return &RSS{
		base:       newBase(def, fetcher),
		referer:    def.Referer,
		accept:     accept,
		scrapePage: def.ScrapePage,
		parser:     gofeed.NewParser(),
	}
}

func (r *RSS) headers() map[string]string {
	if r.referer == "" {
		return nil
	}
	return map[string]string{"Referer": r.referer}
}

func (r *RSS) Fetch(ctx context.Context) []news.Article {
	resp, err := r.http.Get(ctx, r.url, r.accept, r.headers())
	if err != nil {
		logger.Error("failed to fetch feed", "source", r.name, "error", err)
		return nil
	}
	defer resp.Body.Close()

	feed, err := r.parser.Parse(resp.Body)
	if err != nil {
		logger.Error("failed to parse feed", "source", r.name, "error", err)
		return nil
	}
	if len(feed.Items) == 0 {
		logger.Warn("feed has no items", "source", r.name)
		return nil
	}

	items := feed.Items
	if len(items) > r.limit {
		items = items[:r.limit]
	}

	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			logger.Warn("feed item without link", "source", r.name, "title", item.Title)
			continue
		}

		a := news.Article{
			URL:         link,
			Timestamp:   r.itemTime(item),
			Source:      r.name,
			Title:       strings.TrimSpace(item.Title),
			Description: plainText(item.Description),
			ImageURL:    itemImage(item),
		}
		if r.scrapePage {
			r.enrich(ctx, &a)
		}
		articles = append(articles, a)
	}

	logger.Info("fetched feed", "source", r.name, "items", len(articles))
	return articles
}

func (r *RSS) itemTime(item *gofeed.Item) int64 {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.Unix()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.Unix()
	default:
		return r.timestamp(item.Published, item.Link)
	}
}

// enrich replaces the image and description with what the article page
// offers. A failed fetch keeps the feed's values.
func (r *RSS) enrich(ctx context.Context, a *news.Article) {
	page, err := r.http.FetchPage(ctx, a.URL, r.headers())
	if err != nil {
		logger.Warn("failed to fetch article page", "source", r.name, "url", a.URL, "error", err)
		return
	}
	if img := page.PreviewImage(); img != "" {
		a.ImageURL = img
	}
	if desc := page.Summary(); desc != "" {
		a.Description = desc
	}
}

// itemImage prefers media:content, then the item image, then an image
// enclosure.
func itemImage(item *gofeed.Item) string {
	for _, m := range item.Extensions["media"]["content"] {
		if u := m.Attrs["url"]; u != "" {
			return u
		}
	}
	for _, m := range item.Extensions["media"]["thumbnail"] {
		if u := m.Attrs["url"]; u != "" {
			return u
		}
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// plainText strips markup from feed summaries.
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

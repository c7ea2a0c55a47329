// Package news holds the normalized article record shared by all sources and
// the aggregation step that orders them for publishing.
package news

import (
	"context"
	"sort"
	"time"
)

// Article is one news item as normalized by a source adapter.
// URL is the identity used for deduplication.
type Article struct {
	URL         string
	Timestamp   int64 // unix seconds
	Source      string
	Title       string
	Description string
	ImageURL    string // empty when the source has no image
}

// Time returns the article timestamp as a time.Time in UTC.
func (a Article) Time() time.Time {
	return time.Unix(a.Timestamp, 0).UTC()
}

// Source fetches the most recent articles from one origin. Implementations
// swallow their own failures and return an empty slice instead.
type Source interface {
	Name() string
	Fetch(ctx context.Context) []Article
}

// Aggregate fetches every source in order and returns the merged articles
// sorted oldest first. Articles with equal timestamps keep their fetch order.
func Aggregate(ctx context.Context, sources ...Source) []Article {
	var all []Article
	for _, s := range sources {
		all = append(all, s.Fetch(ctx)...)
	}
	SortChronological(all)
	return all
}

// SortChronological stable-sorts articles ascending by timestamp.
func SortChronological(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Timestamp < articles[j].Timestamp
	})
}

// Unseen returns the articles whose URL is not reported as seen, preserving order.
func Unseen(articles []Article, seen func(url string) bool) []Article {
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if seen(a.URL) {
			continue
		}
		out = append(out, a)
	}
	return out
}

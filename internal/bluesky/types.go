package bluesky

import (
	"time"

	"github.com/bluesky-social/indigo/api/bsky"
)

const PostCollection = "app.bsky.feed.post"

// Post is the app.bsky.feed.post record.
type Post = bsky.FeedPost

// External is the link-preview card.
type External = bsky.EmbedExternal_External

// Facet marks a range of the post text.
type Facet = bsky.RichtextFacet

// NewPost assembles a post record with a link facet over uri (when it ends
// the text) and an external embed card.
func NewPost(text, uri string, card External, createdAt time.Time, langs ...string) *Post {
	p := &Post{
		LexiconTypeID: PostCollection,
		Text:          text,
		Embed: &bsky.FeedPost_Embed{
			EmbedExternal: &bsky.EmbedExternal{
				LexiconTypeID: "app.bsky.embed.external",
				External:      &card,
			},
		},
		Langs:     langs,
		CreatedAt: FormatTimestamp(createdAt),
	}
	if f, ok := LinkFacet(text, uri); ok {
		p.Facets = []*Facet{f}
	}
	return p
}

// FormatTimestamp renders t in UTC as RFC 3339 with milliseconds and a
// trailing "Z".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

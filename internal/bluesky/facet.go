package bluesky

import (
	"strings"

	"github.com/bluesky-social/indigo/api/bsky"
)

// LinkFacet marks the last occurrence of uri in text as a link. Posts end
// with the URL line, so a title quoting the same URL is not linked.
// Offsets are UTF-8 byte positions, which is what Go string indexing yields.
func LinkFacet(text, uri string) (*Facet, bool) {
	if uri == "" {
		return nil, false
	}
	start := strings.LastIndex(text, uri)
	if start < 0 {
		return nil, false
	}
	return &Facet{
		Index: &bsky.RichtextFacet_ByteSlice{
			ByteStart: int64(start),
			ByteEnd:   int64(start + len(uri)),
		},
		Features: []*bsky.RichtextFacet_Features_Elem{
			{RichtextFacet_Link: &bsky.RichtextFacet_Link{
				LexiconTypeID: "app.bsky.richtext.facet#link",
				Uri:           uri,
			}},
		},
	}, true
}

package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newsky/internal/cache"
)

// Page is what the pipeline needs from an article page.
type Page struct {
	URL string

	// OpenGraph preview metadata
	OGTitle       string
	OGDescription string
	OGImage       string

	Title           string // <title>
	MetaDescription string // <meta name="description">
	ArticleImage    string // img.article-image, then first img in div.article-container
	FirstParagraph  string // first <p>, truncated
	Text            string // body paragraphs, for summarizing
}

// PreviewImage returns the best image: OpenGraph first, then the page heuristic.
func (p *Page) PreviewImage() string {
	if p.OGImage != "" {
		return p.OGImage
	}
	return p.ArticleImage
}

// Summary returns the meta description, falling back to the first paragraph.
func (p *Page) Summary() string {
	if p.MetaDescription != "" {
		return p.MetaDescription
	}
	return p.FirstParagraph
}

const (
	firstParagraphRunes = 200
	maxTextRunes        = 4000
	pageCacheTTL        = 30 * time.Minute
)

// Client fetches pages and images with a browser-like profile. Parsed pages
// are cached for the run so adapters and the embed builder share one fetch.
type Client struct {
	http    *http.Client
	profile Profile
	pages   *cache.Cache[*Page]
}

func NewClient(httpClient *http.Client, profile Profile) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		http:    httpClient,
		profile: profile,
		pages:   cache.New[*Page](pageCacheTTL),
	}
}

// Get performs a GET with the browser profile and extra headers. Non-2xx
// responses are returned as errors with the body closed.
func (c *Client) Get(ctx context.Context, rawURL, accept string, extra map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.profile.Apply(req, accept)
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: HTTP %d", req.URL, resp.StatusCode)
	}
	return resp, nil
}

// FetchPage downloads and parses an article page.
func (c *Client) FetchPage(ctx context.Context, rawURL string, extra map[string]string) (*Page, error) {
	if p, ok := c.pages.Get(rawURL); ok {
		return p, nil
	}

	resp, err := c.Get(ctx, rawURL, AcceptHTML, extra)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	page, err := ParsePage(rawURL, resp.Body)
	if err != nil {
		return nil, err
	}
	c.pages.Set(rawURL, page)
	return page, nil
}

// Image is a downloaded image body with its declared media type.
type Image struct {
	Data        []byte
	ContentType string
}

// DownloadImage fetches an image with the image profile, reading at most
// maxBytes+1 bytes so callers can detect oversize bodies.
func (c *Client) DownloadImage(ctx context.Context, rawURL string, maxBytes int64) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.profile.ApplyImage(req)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", rawURL, err)
	}

	return &Image{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// ParsePage extracts preview metadata and content heuristics from HTML.
// Relative image URLs are resolved against pageURL.
func ParsePage(pageURL string, r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)

	p := &Page{
		URL:             pageURL,
		OGTitle:         metaContent(doc, `meta[property="og:title"]`),
		OGDescription:   metaContent(doc, `meta[property="og:description"]`),
		OGImage:         resolve(base, metaContent(doc, `meta[property="og:image"]`)),
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription: metaContent(doc, `meta[name="description"]`),
		ArticleImage:    resolve(base, articleImage(doc)),
	}

	if first := doc.Find("p").First(); first.Length() > 0 {
		p.FirstParagraph = truncateRunes(strings.TrimSpace(first.Text()), firstParagraphRunes)
	}
	p.Text = truncateRunes(extractText(doc), maxTextRunes)

	return p, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func articleImage(doc *goquery.Document) string {
	if src, ok := doc.Find("img.article-image").First().Attr("src"); ok && src != "" {
		return src
	}
	if src, ok := doc.Find("div.article-container img").First().Attr("src"); ok && src != "" {
		return src
	}
	return ""
}

// extractText collects paragraph text, trying article containers first.
func extractText(doc *goquery.Document) string {
	selectors := []string{
		"article p",
		".article-body p",
		".article-container p",
		".content p",
		"main p",
		"p",
	}

	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.Join(strings.Fields(s.Text()), " ")
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

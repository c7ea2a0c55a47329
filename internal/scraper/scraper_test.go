package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

const ogPage = `<html><head>
<title>Plain title</title>
<meta property="og:title" content="OG title">
<meta property="og:description" content="OG description">
<meta property="og:image" content="/images/og.jpg">
<meta name="description" content="Meta description">
</head><body>
<div class="article-container"><img src="/images/container.jpg"></div>
<p>First paragraph of the article body with enough words.</p>
</body></html>`

const fallbackPage = `<html><head><title> Only title </title></head><body>
<img class="article-image" src="https://cdn.example.com/hero.png">
<div class="article-container"><img src="/images/container.jpg"></div>
<p>Djurgården vann matchen efter en stark tredje period.</p>
</body></html>`

func TestParsePageOpenGraph(t *testing.T) {
	p, err := ParsePage("https://news.example.com/a/1", strings.NewReader(ogPage))
	if err != nil {
		t.Fatal(err)
	}

	if p.OGTitle != "OG title" || p.OGDescription != "OG description" {
		t.Errorf("unexpected og metadata: %+v", p)
	}
	if p.OGImage != "https://news.example.com/images/og.jpg" {
		t.Errorf("og:image should resolve against the page URL, got %q", p.OGImage)
	}
	if p.PreviewImage() != p.OGImage {
		t.Error("og:image takes precedence over page heuristics")
	}
	if p.Summary() != "Meta description" {
		t.Errorf("Summary() = %q", p.Summary())
	}
}

func TestParsePageFallbacks(t *testing.T) {
	p, err := ParsePage("https://news.example.com/a/2", strings.NewReader(fallbackPage))
	if err != nil {
		t.Fatal(err)
	}

	if p.OGTitle != "" || p.OGImage != "" {
		t.Errorf("expected no og metadata, got %+v", p)
	}
	if p.Title != "Only title" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.PreviewImage() != "https://cdn.example.com/hero.png" {
		t.Errorf("img.article-image should win over container image, got %q", p.PreviewImage())
	}
	if !strings.HasPrefix(p.Summary(), "Djurgården vann") {
		t.Errorf("Summary() should fall back to first paragraph, got %q", p.Summary())
	}
}

func TestParsePageContainerImage(t *testing.T) {
	html := `<html><body><div class="article-container"><p>x</p><img src="pic.jpg"></div></body></html>`
	p, err := ParsePage("https://news.example.com/dir/page", strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	if p.ArticleImage != "https://news.example.com/dir/pic.jpg" {
		t.Errorf("ArticleImage = %q", p.ArticleImage)
	}
}

func TestFirstParagraphTruncatedByRunes(t *testing.T) {
	long := strings.Repeat("å", 300)
	p, err := ParsePage("https://x.test/", strings.NewReader("<p>"+long+"</p>"))
	if err != nil {
		t.Fatal(err)
	}
	if got := len([]rune(p.FirstParagraph)); got != firstParagraphRunes {
		t.Errorf("first paragraph has %d runes, want %d", got, firstParagraphRunes)
	}
}

func TestHostMatches(t *testing.T) {
	tests := []struct {
		rawURL string
		suffix string
		want   bool
	}{
		{"https://www.svenskafans.com/img.jpg", "svenskafans.com", true},
		{"https://svenskafans.com/img.jpg", "svenskafans.com", true},
		{"https://cdn.svenskafans.com:8443/img.jpg", "svenskafans.com", true},
		{"https://notsvenskafans.com/img.jpg", "svenskafans.com", false},
		{"https://example.com/svenskafans.com", "svenskafans.com", false},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.rawURL)
		if got := hostMatches(u, tt.suffix); got != tt.want {
			t.Errorf("hostMatches(%q, %q) = %v, want %v", tt.rawURL, tt.suffix, got, tt.want)
		}
	}
}

func TestFetchPageIsCached(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("User-Agent") == "" || !strings.Contains(r.Header.Get("Accept"), "text/html") {
			t.Errorf("missing browser headers: %v", r.Header)
		}
		w.Write([]byte(ogPage))
	}))
	defer server.Close()

	c := NewClient(server.Client(), DefaultProfile())
	for i := 0; i < 2; i++ {
		p, err := c.FetchPage(context.Background(), server.URL+"/a", nil)
		if err != nil {
			t.Fatal(err)
		}
		if p.OGTitle != "OG title" {
			t.Errorf("OGTitle = %q", p.OGTitle)
		}
	}
	if hits != 1 {
		t.Errorf("page fetched %d times, want 1", hits)
	}
}

func TestFetchPageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.Client(), DefaultProfile())
	if _, err := c.FetchPage(context.Background(), server.URL, nil); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestDownloadImageAppliesOverrides(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://origin.test/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Accept"), "image/") {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	profile := DefaultProfile()
	profile.ImageOverrides["127.0.0.1"] = map[string]string{"Referer": "https://origin.test/"}

	c := NewClient(server.Client(), profile)
	img, err := c.DownloadImage(context.Background(), server.URL+"/pic.png", 1024)
	if err != nil {
		t.Fatal(err)
	}
	if img.ContentType != "image/png" || string(img.Data) != "png-bytes" {
		t.Errorf("unexpected image: %q %q", img.ContentType, img.Data)
	}
}

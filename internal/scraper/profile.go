package scraper

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	AcceptHTML  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptFeed  = "application/rss+xml,application/xml,text/xml;q=0.9"
	AcceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	AcceptJSON  = "application/json"
)

// Profile is a browser-like set of request headers. Some image hosts reject
// default request identities, so ImageOverrides adds per-host headers to
// image downloads.
type Profile struct {
	UserAgent      string
	AcceptLanguage string
	// ImageOverrides maps a host suffix (e.g. "svenskafans.com") to extra headers.
	ImageOverrides map[string]map[string]string
}

// DefaultImageOverrides are the origins known to need a spoofed Referer/Origin.
func DefaultImageOverrides() map[string]map[string]string {
	return map[string]map[string]string{
		"svenskafans.com": {
			"Referer":            "https://www.svenskafans.com/",
			"Origin":             "https://www.svenskafans.com",
			"sec-ch-ua":          `"Chromium";v="122", "Google Chrome";v="122", "Not:A-Brand";v="99"`,
			"sec-ch-ua-mobile":   "?0",
			"sec-ch-ua-platform": `"macOS"`,
			"Sec-Fetch-Dest":     "image",
			"Sec-Fetch-Mode":     "no-cors",
			"Sec-Fetch-Site":     "same-site",
		},
	}
}

func DefaultProfile() Profile {
	return Profile{
		UserAgent:      browserUserAgent,
		AcceptLanguage: "en-US,en;q=0.9",
		ImageOverrides: DefaultImageOverrides(),
	}
}

// Apply sets the base browser headers.
func (p Profile) Apply(req *http.Request, accept string) {
	ua := p.UserAgent
	if ua == "" {
		ua = browserUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if p.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", p.AcceptLanguage)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
}

// ApplyImage sets the base headers for an image request plus any override
// whose host suffix matches the request URL.
func (p Profile) ApplyImage(req *http.Request) {
	p.Apply(req, AcceptImage)
	for suffix, headers := range p.ImageOverrides {
		if !hostMatches(req.URL, suffix) {
			continue
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}
}

func hostMatches(u *url.URL, suffix string) bool {
	if u == nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	suffix = strings.ToLower(strings.TrimPrefix(suffix, "."))
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}

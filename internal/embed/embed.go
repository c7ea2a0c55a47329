// Package embed builds link-preview cards for posts: title, description and
// an optional uploaded thumbnail.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deusflow/newsky/internal/bluesky"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/scraper"
)

const (
	DefaultTitle       = "No Title"
	DefaultDescription = "No description available."

	// MaxImageBytes is the blob size limit for post thumbnails.
	MaxImageBytes = 1_000_000
)

var (
	ErrNotImage      = errors.New("downloaded content is not an image")
	ErrImageTooLarge = errors.New("image exceeds blob size limit")
)

type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string, extra map[string]string) (*scraper.Page, error)
}

type ImageDownloader interface {
	DownloadImage(ctx context.Context, rawURL string, maxBytes int64) (*scraper.Image, error)
}

type BlobUploader interface {
	UploadBlob(ctx context.Context, token, mimeType string, data []byte) (*bluesky.Blob, error)
}

// Describer writes a description when the page has none. Optional.
type Describer interface {
	Describe(ctx context.Context, title, text string) (string, error)
}

// Target is the link to preview plus whatever metadata the source supplied.
type Target struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
}

type Builder struct {
	pages         PageFetcher
	images        ImageDownloader
	uploader      BlobUploader
	describer     Describer
	maxImageBytes int64
}

func NewBuilder(pages PageFetcher, images ImageDownloader, uploader BlobUploader, describer Describer) *Builder {
	return &Builder{
		pages:         pages,
		images:        images,
		uploader:      uploader,
		describer:     describer,
		maxImageBytes: MaxImageBytes,
	}
}

// Resolve returns the card text and the image URL to use, if any. Supplied
// title and description skip the page fetch entirely.
func (b *Builder) Resolve(ctx context.Context, t Target) (bluesky.External, string) {
	card := bluesky.External{Uri: t.URL, Title: t.Title, Description: t.Description}
	imageURL := t.ImageURL

	if t.Title != "" && t.Description != "" {
		return card, imageURL
	}

	page, err := b.pages.FetchPage(ctx, t.URL, nil)
	if err != nil || page == nil {
		logger.Warn("failed to fetch preview metadata", "url", t.URL, "error", err)
		page = &scraper.Page{URL: t.URL}
	}

	card.Title = firstNonEmpty(page.OGTitle, page.Title, t.Title, DefaultTitle)
	card.Description = firstNonEmpty(page.OGDescription, t.Description)
	if card.Description == "" {
		card.Description = b.describe(ctx, card.Title, page.Text)
	}
	if imageURL == "" {
		imageURL = page.PreviewImage()
	}

	return card, imageURL
}

func (b *Builder) describe(ctx context.Context, title, text string) string {
	if b.describer == nil || text == "" {
		return DefaultDescription
	}
	d, err := b.describer.Describe(ctx, title, text)
	if err != nil || d == "" {
		logger.Debug("description fallback", "error", err)
		return DefaultDescription
	}
	return d
}

// Thumbnail downloads imageURL, checks it is an image within the size limit
// and uploads it as a blob.
func (b *Builder) Thumbnail(ctx context.Context, token, imageURL string) (*bluesky.Blob, error) {
	img, err := b.images.DownloadImage(ctx, imageURL, b.maxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}

	mimeType := mediaType(img.ContentType)
	logger.Debug("image downloaded", "url", imageURL, "type", mimeType, "bytes", len(img.Data))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %q", ErrNotImage, img.ContentType)
	}
	if int64(len(img.Data)) > b.maxImageBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, b.maxImageBytes)
	}

	blob, err := b.uploader.UploadBlob(ctx, token, mimeType, img.Data)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}
	return blob, nil
}

// mediaType strips parameters from a Content-Type value.
func mediaType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

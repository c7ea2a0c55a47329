// Package publisher turns articles into Bluesky posts with a link facet and
// a preview card.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newsky/internal/bluesky"
	"github.com/deusflow/newsky/internal/embed"
	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/news"
	"github.com/deusflow/newsky/internal/retry"
)

// ErrAuthentication means no session could be created. Nothing can be
// published without one, so callers should stop the run.
var ErrAuthentication = errors.New("authentication failed")

// maxPostRunes approximates the 300 grapheme limit on post text.
const maxPostRunes = 300

type Credentials struct {
	Identifier string
	Password   string
}

type API interface {
	CreateSession(ctx context.Context, identifier, password string) (*bluesky.Session, error)
	CreateRecord(ctx context.Context, token, repo, collection string, record *bluesky.Post) (*bluesky.CreateRecordOutput, error)
}

type CardBuilder interface {
	Resolve(ctx context.Context, t embed.Target) (bluesky.External, string)
	Thumbnail(ctx context.Context, token, imageURL string) (*bluesky.Blob, error)
}

type Options struct {
	Label        string // second line of every post
	Langs        []string
	AuthAttempts int
	AuthDelay    time.Duration
}

type Publisher struct {
	api   API
	cards CardBuilder
	opts  Options
	now   func() time.Time

	// OnState, if set, observes every state transition of a publish attempt.
	OnState func(a news.Article, s State)
}

func New(api API, cards CardBuilder, opts Options) *Publisher {
	if opts.AuthAttempts <= 0 {
		opts.AuthAttempts = 3
	}
	return &Publisher{
		api:   api,
		cards: cards,
		opts:  opts,
		now:   time.Now,
	}
}

// Authenticate creates a session, retrying with a fixed delay.
func (p *Publisher) Authenticate(ctx context.Context, cred Credentials) (*bluesky.Session, error) {
	var session *bluesky.Session

	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: p.opts.AuthAttempts,
		Delay:       p.opts.AuthDelay,
		OnFailure: func(attempt int, err error) {
			logger.Warn("authentication failed", "attempt", attempt, "max", p.opts.AuthAttempts, "error", err)
		},
	}, func(ctx context.Context) error {
		s, err := p.api.CreateSession(ctx, cred.Identifier, cred.Password)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if session.Did == "" && session.Handle == "" {
		session.Handle = cred.Identifier
	}
	logger.Info("authenticated", "handle", session.Handle)
	return session, nil
}

// Publish posts one article. It returns true only when the record was
// created; every failure is logged and reported as false.
func (p *Publisher) Publish(ctx context.Context, session *bluesky.Session, a news.Article) bool {
	p.transition(a, StateIdle)
	p.transition(a, StateResolvingEmbed)

	card, imageURL := p.cards.Resolve(ctx, embed.Target{
		URL:         a.URL,
		Title:       a.Title,
		Description: a.Description,
		ImageURL:    a.ImageURL,
	})

	if imageURL != "" {
		p.transition(a, StateUploadingImage)
		thumb, err := p.cards.Thumbnail(ctx, session.AccessJwt, imageURL)
		if err != nil {
			logger.Warn("posting without thumbnail", "url", a.URL, "image", imageURL, "error", err)
		} else {
			card.Thumb = thumb
		}
	}

	p.transition(a, StateSubmitting)
	text := FormatText(card.Title, p.opts.Label, a.URL)
	post := bluesky.NewPost(text, a.URL, card, p.now(), p.opts.Langs...)

	out, err := p.api.CreateRecord(ctx, session.AccessJwt, repoOf(session), bluesky.PostCollection, post)
	if err != nil && !errors.Is(err, bluesky.ErrUndecodable) {
		var apiErr *bluesky.APIError
		if errors.As(err, &apiErr) {
			logger.Error("failed to post", "url", a.URL, "status", apiErr.Status, "response", apiErr.Body)
		} else {
			logger.Error("failed to post", "url", a.URL, "error", err)
		}
		p.transition(a, StateFailed)
		return false
	}

	uri := ""
	if out != nil {
		uri = out.Uri
	}
	logger.Info("posted", "title", card.Title, "url", a.URL, "source", a.Source, "record", uri, "thumb", card.Thumb != nil)
	p.transition(a, StateDone)
	return true
}

func (p *Publisher) transition(a news.Article, s State) {
	logger.Debug("publish state", "url", a.URL, "state", s.String())
	if p.OnState != nil {
		p.OnState(a, s)
	}
}

func repoOf(s *bluesky.Session) string {
	if s.Did != "" {
		return s.Did
	}
	return s.Handle
}

// FormatText renders the post: title, label and the URL on separate lines.
// The title is shortened so the URL always fits within the post limit.
func FormatText(title, label, url string) string {
	title = strings.TrimSpace(title)
	label = strings.TrimSpace(label)

	budget := maxPostRunes - utf8.RuneCountInString(label) - utf8.RuneCountInString(url) - 2
	if utf8.RuneCountInString(title) > budget {
		if budget <= 1 {
			title = ""
		} else {
			runes := []rune(title)
			title = strings.TrimSpace(string(runes[:budget-1])) + "…"
		}
	}

	return title + "\n" + label + "\n" + url
}

package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/newsky/internal/ratelimit"
)

const (
	defaultModel     = "gemini-1.5-flash"
	maxPromptRunes   = 4000
	maxDescribeRunes = 200
)

// Client writes short link-card descriptions for pages that have none.
type Client struct {
	client *genai.Client
	model  string
	budget *ratelimit.Budget
}

func NewClient(ctx context.Context, apiKey string, budget *ratelimit.Budget) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: defaultModel, budget: budget}, nil
}

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Describe returns a one-sentence description of the article, written in the
// article's own language.
func (c *Client) Describe(ctx context.Context, title, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no page text to describe")
	}
	if c.budget != nil {
		if err := c.budget.Use(); err != nil {
			return "", err
		}
	}

	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(title, text)))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	description := cleanResponse(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if description == "" {
		return "", fmt.Errorf("empty description from Gemini")
	}
	return description, nil
}

func buildPrompt(title, text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > maxPromptRunes {
		text = string([]rune(text)[:maxPromptRunes])
	}

	return fmt.Sprintf(`Write one sentence (at most %d characters) describing this sports news article for a link preview.
Use the same language as the article. Answer with the sentence only, no quotes or labels.

Title: %s
Article: %s
`, maxDescribeRunes, title, text)
}

// cleanResponse strips labels, quotes and extra lines the model may add.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	for _, prefix := range []string{"Description:", "Beskrivning:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	s = strings.Trim(s, `"“”«»'`)
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > maxDescribeRunes {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxDescribeRunes-1])) + "…"
	}
	return s
}

// Package gemini adapts the Gemini API client to the single-prompt
// completion the generators and analyzers need.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrNoKey is returned when the client is used without an API key.
var ErrNoKey = errors.New("gemini: no API key configured")

// Options configure a Client.
type Options struct {
	APIKey  string
	Model   string        // DefaultModel when empty
	BaseURL string        // API endpoint override; the public endpoint when empty
	Timeout time.Duration // per call; zero means no extra bound
}

type Client struct {
	models  *genai.Models
	model   string
	timeout time.Duration
	err     error // construction failure, reported on every call
}

// NewClient returns a client for opts. A missing key or a rejected
// configuration is reported by Generate, so a misconfigured provider fails
// the action instead of startup.
func NewClient(ctx context.Context, opts Options) *Client {
	c := &Client{model: opts.Model, timeout: opts.Timeout}
	if c.model == "" {
		c.model = DefaultModel
	}
	if opts.APIKey == "" {
		c.err = ErrNoKey
		return c
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		c.err = fmt.Errorf("gemini: %w", err)
		return c
	}
	c.models = gc.Models
	return c
}

// Generate sends a single-turn prompt and returns the first candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: response has no text")
	}
	return text, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package anthropic backs topic extraction, cluster labeling, and
// summarization with the Anthropic Messages API. Anthropic has no
// embeddings endpoint, so this package does not implement
// provider.Embedder; pair it with the openai package for embeddings.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/murmur-dev/murmur/internal/provider"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

const (
	defaultModel = "claude-haiku-4-5"

	maxOutputTokens = 256
)

// Config holds Anthropic client configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
	Model   string
}

// Client implements provider.TopicExtractor, provider.Labeler, and
// provider.Summarizer on the Anthropic Messages API.
type Client struct {
	client anthropicsdk.Client
	config Config
}

var (
	_ provider.TopicExtractor = (*Client)(nil)
	_ provider.Labeler        = (*Client)(nil)
	_ provider.Summarizer     = (*Client)(nil)
)

// New creates an Anthropic client. Returns an error if the API key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, murmurerr.New(murmurerr.CodeProviderRequestInvalid, "anthropic: missing api key")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: anthropicsdk.NewClient(opts...), config: cfg}, nil
}

// ExtractTopics asks the model for 3-5 keyword topics.
func (c *Client) ExtractTopics(ctx context.Context, text string) ([]string, error) {
	const prompt = `Extract 3-5 short topic keywords from this journal entry.
Respond with a JSON array of strings only, no other text.`

	out, err := c.complete(ctx, prompt, provider.Truncate(text))
	if err != nil {
		return nil, err
	}
	return provider.ParseTopicList(out), nil
}

// LabelCluster names a group of related entries from sampled texts.
func (c *Client) LabelCluster(ctx context.Context, samples []string) (string, error) {
	const prompt = `These are excerpts from related journal entries.
Respond with a short descriptive topic name (2-4 words) for the group, nothing else.`

	out, err := c.complete(ctx, prompt, provider.Truncate(strings.Join(samples, "\n---\n")))
	if err != nil {
		return "", err
	}
	return provider.CleanLabel(out), nil
}

// Summarize produces a one-to-two sentence summary of a transcript.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	const prompt = `Summarize this journal entry in one or two sentences,
in the author's voice, without preamble.`

	out, err := c.complete(ctx, prompt, provider.Truncate(text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// complete runs a single non-streaming message and concatenates the text blocks.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.config.Model),
		MaxTokens: maxOutputTokens,
		System: []anthropicsdk.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", mapError(err, "message")
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", murmurerr.New(murmurerr.CodeProviderUpstreamFailure, "anthropic: empty message response")
	}
	return sb.String(), nil
}

// mapError translates SDK failures into coded errors by HTTP status.
func mapError(err error, op string) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("anthropic: %s", op)
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return murmurerr.Wrap(err, murmurerr.CodeProviderUnauthorized, msg)
		case apiErr.StatusCode == 429:
			return murmurerr.Wrap(err, murmurerr.CodeProviderRateLimited, msg)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return murmurerr.Wrap(err, murmurerr.CodeProviderRequestInvalid, msg)
		default:
			return murmurerr.Wrap(err, murmurerr.CodeProviderUpstreamFailure, msg)
		}
	}
	return murmurerr.Wrapf(err, murmurerr.CodeProviderUpstreamFailure, "anthropic: %s", op)
}

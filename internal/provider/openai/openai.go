// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package openai backs every provider interface with the OpenAI API:
// embeddings plus chat-based topic extraction, labeling, and summarization.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/murmur-dev/murmur/internal/provider"
	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

const (
	defaultEmbeddingModel = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	defaultChatModel      = "gpt-4.1-mini"

	// Short completions; labels and topic lists are a handful of tokens.
	maxCompletionTokens = 256
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey         string
	BaseURL        string // optional, useful for testing against a mock server
	EmbeddingModel string
	ChatModel      string
}

// Client implements provider.Embedder, provider.TopicExtractor,
// provider.Labeler, and provider.Summarizer on the OpenAI API.
type Client struct {
	client openaisdk.Client
	config Config
}

var (
	_ provider.Embedder       = (*Client)(nil)
	_ provider.TopicExtractor = (*Client)(nil)
	_ provider.Labeler        = (*Client)(nil)
	_ provider.Summarizer     = (*Client)(nil)
)

// New creates an OpenAI client. Returns an error if the API key is missing.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, murmurerr.New(murmurerr.CodeProviderRequestInvalid, "openai: missing api key")
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), config: cfg}, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(provider.Truncate(text)),
		},
		Model: openaisdk.EmbeddingModel(c.config.EmbeddingModel),
	})
	if err != nil {
		return nil, mapError(err, "creating embedding")
	}
	if len(resp.Data) == 0 {
		return nil, murmurerr.New(murmurerr.CodeProviderUpstreamFailure, "openai: empty embedding response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// ExtractTopics asks the chat model for 3-5 keyword topics.
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

// complete runs a single non-streaming chat completion.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.config.ChatModel),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		MaxCompletionTokens: param.NewOpt(int64(maxCompletionTokens)),
	})
	if err != nil {
		return "", mapError(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", murmurerr.New(murmurerr.CodeProviderUpstreamFailure, "openai: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// mapError translates SDK failures into coded errors by HTTP status.
func mapError(err error, op string) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("openai: %s", op)
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
	return murmurerr.Wrapf(err, murmurerr.CodeProviderUpstreamFailure, "openai: %s", op)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

// Package provider defines the model-backed collaborators the engine
// depends on: embedding, topic extraction, cluster labeling, and
// summarization. Implementations live in subpackages per vendor.
package provider

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxInputChars caps the text sent to a model. Journal transcripts can be
// long; everything past this point adds cost without changing the result.
const maxInputChars = 8000

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TopicExtractor produces a short list of keyword strings from text.
type TopicExtractor interface {
	ExtractTopics(ctx context.Context, text string) ([]string, error)
}

// Labeler produces a short descriptive name for a group of texts.
type Labeler interface {
	LabelCluster(ctx context.Context, samples []string) (string, error)
}

// Summarizer produces a one-to-two sentence summary of text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Truncate clips text to the model input cap, backing up to the nearest
// rune boundary so a multi-byte character is never split.
func Truncate(text string) string {
	if len(text) <= maxInputChars {
		return text
	}
	cut := maxInputChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// ParseTopicList parses a model response expected to be a JSON string
// array, tolerating prose fallbacks: code fences are stripped and, when
// JSON parsing fails, the response is split on commas and newlines.
func ParseTopicList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var topics []string
	if err := json.Unmarshal([]byte(raw), &topics); err == nil {
		return cleanTopics(topics)
	}

	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	return cleanTopics(split)
}

func cleanTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		// Trim whitespace and quote/bullet characters until stable, so
		// "- running" loses both the dash and the space behind it.
		t = strings.Trim(t, `"'- `+"\t\r\n")
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// CleanLabel normalizes a model-produced folder label: surrounding quotes
// and whitespace stripped, first line only.
func CleanLabel(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}

/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls GenerateContent through the genai client, on either the
// Gemini API or Vertex AI depending on how the client was built.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
	retry     RetryConfig
}

// NewGemini constructs a Gemini backend.
func NewGemini(client *genai.Client, model string, maxTokens int32, retry RetryConfig) *Gemini {
	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
	}
}

// Name implements Backend.
func (g *Gemini) Name() string { return "gemini" }

// Model implements Backend.
func (g *Gemini) Model() string { return g.model }

// Complete implements Backend.
func (g *Gemini) Complete(ctx context.Context, prompt, _ string) (Completion, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := withRetry(ctx, g.retry, "gemini_generate", isRetryableGemini, func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.model, contents, config)
	})
	if err != nil {
		return Completion{}, fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Completion{}, errors.New("gemini generate: no candidates in response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}

	comp := Completion{Text: strings.TrimSpace(b.String())}
	if u := resp.UsageMetadata; u != nil {
		comp.PromptTokens = int64(u.PromptTokenCount)
		comp.CompletionTokens = int64(u.CandidatesTokenCount)
	}
	return comp, nil
}

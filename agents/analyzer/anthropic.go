/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     RetryConfig
}

// NewAnthropic constructs an Anthropic backend. The client may target the
// public API (option.WithAPIKey) or Vertex AI (vertex.WithGoogleAuth).
func NewAnthropic(client anthropic.Client, model string, maxTokens int64, retry RetryConfig) *Anthropic {
	return &Anthropic{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
	}
}

// Name implements Backend.
func (a *Anthropic) Name() string { return "anthropic" }

// Model implements Backend.
func (a *Anthropic) Model() string { return a.model }

// Complete implements Backend.
func (a *Anthropic) Complete(ctx context.Context, prompt, _ string) (Completion, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	msg, err := withRetry(ctx, a.retry, "anthropic_message", isRetryableAnthropic, func() (*anthropic.Message, error) {
		return a.client.Messages.New(ctx, params)
	})
	if err != nil {
		return Completion{}, fmt.Errorf("anthropic message: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return Completion{
		Text:             strings.TrimSpace(b.String()),
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
	}, nil
}

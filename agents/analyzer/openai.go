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

	"github.com/openai/openai-go"
)

// OpenAI calls the Chat Completions API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	retry     RetryConfig
}

// NewOpenAI constructs an OpenAI backend.
func NewOpenAI(client openai.Client, model string, maxTokens int64, retry RetryConfig) *OpenAI {
	return &OpenAI{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
	}
}

// Name implements Backend.
func (o *OpenAI) Name() string { return "openai" }

// Model implements Backend.
func (o *OpenAI) Model() string { return o.model }

// Complete implements Backend.
func (o *OpenAI) Complete(ctx context.Context, prompt, _ string) (Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(o.maxTokens),
	}

	resp, err := withRetry(ctx, o.retry, "openai_chat", isRetryableOpenAI, func() (*openai.ChatCompletion, error) {
		return o.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return Completion{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, errors.New("openai chat: no choices in response")
	}

	return Completion{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

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
	"time"

	"cloud.google.com/go/compute/metadata"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"google.golang.org/genai"
)

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "cli", "anthropic", "openai" or "gemini".
	Backend   string
	Model     string
	MaxTokens int
	APIKey    string
	BaseURL   string
	// Command is the executable for the cli backend.
	Command string
	Timeout time.Duration
	// ProjectID and Region route anthropic and gemini through Vertex AI when
	// no APIKey is set. Empty values are detected from the metadata server.
	ProjectID string
	Region    string
	Interval  time.Duration
}

// NewFromConfig builds a rate-gated Client for cfg.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Interval != 0 {
		opts = append([]Option{WithInterval(cfg.Interval)}, opts...)
	}
	clog.FromContext(ctx).With("backend", backend.Name(), "model", backend.Model()).Info("Configured generation backend")
	return New(backend, opts...), nil
}

func newBackend(ctx context.Context, cfg Config) (Backend, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	switch strings.ToLower(cfg.Backend) {
	case "", "cli":
		var opts []CLIOption
		if cfg.Command != "" {
			opts = append(opts, WithCommand(cfg.Command))
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		return NewCLI(opts...), nil

	case "anthropic":
		model := defaultString(cfg.Model, "claude-sonnet-4-5")
		var reqOpts []anthropicopt.RequestOption
		if cfg.APIKey != "" {
			reqOpts = append(reqOpts, anthropicopt.WithAPIKey(cfg.APIKey))
			if cfg.BaseURL != "" {
				reqOpts = append(reqOpts, anthropicopt.WithBaseURL(cfg.BaseURL))
			}
		} else {
			project, region, err := vertexLocation(ctx, cfg)
			if err != nil {
				return nil, err
			}
			reqOpts = append(reqOpts, vertex.WithGoogleAuth(ctx, region, project))
		}
		return NewAnthropic(anthropic.NewClient(reqOpts...), model, int64(maxTokens), DefaultRetryConfig()), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("openai backend requires an API key")
		}
		reqOpts := []openaiopt.RequestOption{openaiopt.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			reqOpts = append(reqOpts, openaiopt.WithBaseURL(cfg.BaseURL))
		}
		model := defaultString(cfg.Model, "gpt-4o-mini")
		return NewOpenAI(openai.NewClient(reqOpts...), model, int64(maxTokens), DefaultRetryConfig()), nil

	case "gemini":
		cc := &genai.ClientConfig{}
		if cfg.APIKey != "" {
			cc.APIKey = cfg.APIKey
			cc.Backend = genai.BackendGeminiAPI
		} else {
			project, region, err := vertexLocation(ctx, cfg)
			if err != nil {
				return nil, err
			}
			cc.Project = project
			cc.Location = region
			cc.Backend = genai.BackendVertexAI
		}
		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("creating genai client: %w", err)
		}
		model := defaultString(cfg.Model, "gemini-2.5-flash")
		return NewGemini(client, model, int32(maxTokens), DefaultRetryConfig()), nil

	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
}

// vertexLocation fills in the project and region from the metadata server
// when they are not configured.
func vertexLocation(ctx context.Context, cfg Config) (string, string, error) {
	project, region := cfg.ProjectID, cfg.Region
	if project == "" {
		p, err := metadata.ProjectIDWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detecting project ID: %w", err)
		}
		project = p
	}
	if region == "" {
		zone, err := metadata.ZoneWithContext(ctx)
		if err != nil {
			return "", "", fmt.Errorf("detecting zone: %w", err)
		}
		region = zone
		if i := strings.LastIndex(zone, "-"); i > 0 {
			region = zone[:i]
		}
	}
	return project, region, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package ghclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// Config selects how the client authenticates. A GitHub App installation
// is used when AppID is set; otherwise Token is sent as a bearer token.
type Config struct {
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	// BaseURL points at a GitHub Enterprise API, e.g.
	// "https://github.example.com/api/v3/".
	BaseURL string
}

// Client wraps the REST and GraphQL APIs with the operations the service
// performs on repositories.
type Client struct {
	gh  *github.Client
	gql *githubv4.Client
}

// New builds an authenticated Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient, err := httpClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		if gh, err = gh.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("configuring enterprise URL: %w", err)
		}
	}
	return NewFromClient(gh), nil
}

// NewFromClient wraps an existing REST client. GraphQL requests are sent to
// the same host.
func NewFromClient(gh *github.Client) *Client {
	gql := githubv4.NewClient(gh.Client())
	if !strings.HasPrefix(gh.BaseURL.String(), "https://api.github.com") {
		gql = githubv4.NewEnterpriseClient(graphQLURL(gh.BaseURL.String()), gh.Client())
	}
	return &Client{gh: gh, gql: gql}
}

// GitHub exposes the underlying REST client.
func (c *Client) GitHub() *github.Client {
	return c.gh
}

func httpClient(ctx context.Context, cfg Config) (*http.Client, error) {
	switch {
	case cfg.AppID != 0:
		tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading app key: %w", err)
		}
		if cfg.BaseURL != "" {
			tr.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		return &http.Client{Transport: tr}, nil
	case cfg.Token != "":
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})), nil
	default:
		return nil, errors.New("no GitHub credentials configured")
	}
}

// graphQLURL maps a REST base such as "https://host/api/v3/" to the
// matching "https://host/api/graphql" endpoint.
func graphQLURL(rest string) string {
	rest = strings.TrimSuffix(rest, "/")
	rest = strings.TrimSuffix(rest, "/v3")
	return rest + "/graphql"
}

// SplitRepo splits "owner/name".
func SplitRepo(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository name %q", fullName)
	}
	return owner, name, nil
}

// TokenSource returns the credential used for git operations over HTTPS,
// or nil when cfg carries no credentials.
func TokenSource(cfg Config) (oauth2.TokenSource, error) {
	switch {
	case cfg.AppID != 0:
		tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading app key: %w", err)
		}
		if cfg.BaseURL != "" {
			tr.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		return oauth2.ReuseTokenSource(nil, installationTokens{tr}), nil
	case cfg.Token != "":
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}), nil
	default:
		return nil, nil
	}
}

type installationTokens struct {
	tr *ghinstallation.Transport
}

func (it installationTokens) Token() (*oauth2.Token, error) {
	ctx := context.Background()
	token, err := it.tr.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("minting installation token: %w", err)
	}
	expiry, _, err := it.tr.Expiry()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, Expiry: expiry}, nil
}

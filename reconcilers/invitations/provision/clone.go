/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package provision

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// cloneTimeout bounds a single clone.
const cloneTimeout = 5 * time.Minute

// clone checks repo out into dir unless dir already exists.
func (p *Provisioner) clone(ctx context.Context, repo, dir string) (Status, string, error) {
	if _, err := os.Stat(dir); err == nil {
		clog.FromContext(ctx).With("path", dir).Warn("Clone directory already exists")
		return Exists, dir, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("checking %s: %w", dir, err)
	}

	remote, err := p.hooks.CloneURL(ctx, repo)
	if err != nil {
		return "", "", err
	}
	auth, err := p.authForRemote()
	if err != nil {
		return "", "", fmt.Errorf("getting token: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cloneTimeout)
	defer cancel()

	clog.FromContext(ctx).Infof("Cloning repository %s into %s", remote, dir)
	opts := &git.CloneOptions{URL: remote}
	if auth != nil {
		opts.Auth = auth
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("cloning repository: %w", err)
	}
	return Done, dir, nil
}

func (p *Provisioner) authForRemote() (*githttp.BasicAuth, error) {
	if p.tokenSource == nil {
		return nil, nil
	}
	token, err := p.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultCLITimeout bounds a single CLI invocation.
const DefaultCLITimeout = 30 * time.Second

// CLI runs a local executable as "<command> prompt <file>", where file holds
// the prompt text, and returns its trimmed standard output.
type CLI struct {
	command string
	timeout time.Duration
}

// CLIOption configures a CLI backend.
type CLIOption func(*CLI)

// WithCommand overrides the executable (default "claude").
func WithCommand(command string) CLIOption {
	return func(c *CLI) {
		c.command = command
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) CLIOption {
	return func(c *CLI) {
		c.timeout = d
	}
}

// NewCLI constructs a CLI backend.
func NewCLI(opts ...CLIOption) *CLI {
	c := &CLI{
		command: "claude",
		timeout: DefaultCLITimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Backend.
func (c *CLI) Name() string { return "cli" }

// Model implements Backend.
func (c *CLI) Model() string { return c.command }

// Complete implements Backend.
func (c *CLI) Complete(ctx context.Context, prompt, workDir string) (Completion, error) {
	f, err := os.CreateTemp("", "promptforge-prompt-*.txt")
	if err != nil {
		return Completion{}, fmt.Errorf("creating prompt file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(prompt); err != nil {
		f.Close()
		return Completion{}, fmt.Errorf("writing prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Completion{}, fmt.Errorf("closing prompt file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.command, "prompt", f.Name())
	cmd.WaitDelay = time.Second
	if workDir != "" {
		if info, err := os.Stat(workDir); err == nil && info.IsDir() {
			cmd.Dir = workDir
		}
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	switch err := cmd.Run(); {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return Completion{}, fmt.Errorf("%s timed out after %v", c.command, c.timeout)
	case errors.Is(err, exec.ErrNotFound):
		return Completion{}, fmt.Errorf("%s not available: %w", c.command, err)
	case err != nil:
		return Completion{}, fmt.Errorf("running %s: %w: %s", c.command, err, strings.TrimSpace(stderr.String()))
	}

	return Completion{Text: strings.TrimSpace(stdout.String())}, nil
}

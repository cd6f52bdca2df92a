/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package main prints the JSON Schema of the settings file.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/clidecoder/promptforge/config"
)

func main() {
	ctx := context.Background()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(config.Schema()); err != nil {
		clog.FatalContextf(ctx, "encoding schema: %v", err)
	}
}

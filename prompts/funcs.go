/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"truncate": truncate,
	"default":  defaultValue,
	"join":     join,
	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"indent":   indent,
}

// truncate shortens s to at most n bytes, marking the cut with "...".
func truncate(n int, s string) string {
	if n < 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// defaultValue returns def when v is nil or the empty string.
func defaultValue(def, v any) any {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if x == "" {
			return def
		}
	}
	return v
}

// join concatenates a list of values, accepting both []string and the
// []any produced by decoding JSON.
func join(sep string, v any) string {
	switch xs := v.(type) {
	case []string:
		return strings.Join(xs, sep)
	case []any:
		parts := make([]string, 0, len(xs))
		for _, x := range xs {
			parts = append(parts, fmt.Sprint(x))
		}
		return strings.Join(parts, sep)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

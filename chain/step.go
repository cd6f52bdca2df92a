/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"maps"
	"strings"
	"time"
)

// Type selects how a chain's steps are scheduled.
type Type string

const (
	Sequential Type = "sequential"
	// Parallel and Conditional are accepted but run with the sequential
	// algorithm.
	Parallel    Type = "parallel"
	Conditional Type = "conditional"
)

// TemplateKey names a prompt template by category and action.
type TemplateKey struct {
	Category string
	Action   string
}

// Key builds a TemplateKey from its two halves.
func Key(category, action string) TemplateKey {
	return TemplateKey{Category: category, Action: action}
}

// ParseTemplateKey parses "category.action". A key without a dot selects the
// category's default template.
func ParseTemplateKey(s string) TemplateKey {
	category, action, ok := strings.Cut(s, ".")
	if !ok {
		action = "default"
	}
	return TemplateKey{Category: category, Action: action}
}

func (k TemplateKey) String() string {
	return k.Category + "." + k.Action
}

// ExtractorID references an Extractor registered in Funcs.
type ExtractorID string

// GuardID references a Guard registered in Funcs.
type GuardID string

// Step is one declarative unit of a chain.
type Step struct {
	// Name must be unique within the chain.
	Name     string
	Template TemplateKey
	// Extractor is optional.
	Extractor ExtractorID
	// Guard is optional. A step whose guard returns false is skipped.
	Guard GuardID
	// RetainOutput stores the step's raw output in the context under
	// "<name>_response" for later steps. Steps with an extractor always
	// retain their output.
	RetainOutput bool
}

// Context holds the template variables for one chain run.
type Context map[string]any

// Clone returns a shallow copy.
func (c Context) Clone() Context {
	if c == nil {
		return Context{}
	}
	return maps.Clone(c)
}

// Field is one labeled entry of extracted data.
type Field struct {
	Key   string
	Value any
}

// Data is structured output derived from a step. Fields are returned in a
// stable order so transcripts and records are reproducible.
type Data interface {
	Fields() []Field
}

// Metadata describes how a Result was produced.
type Metadata struct {
	Template  TemplateKey
	Timestamp time.Time
}

// Result is the record of one executed step.
type Result struct {
	StepName string
	Output   string
	// Data is nil when the step declares no extractor.
	Data     Data
	Metadata Metadata
}

/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownExtractor is returned by Validate for an unregistered extractor.
	ErrUnknownExtractor = errors.New("unknown extractor")
	// ErrUnknownGuard is returned by Validate for an unregistered guard.
	ErrUnknownGuard = errors.New("unknown guard")
	// ErrInvalidStep is returned by Validate for a missing or repeated step name.
	ErrInvalidStep = errors.New("invalid step")
)

// Extractor derives structured data from a step's raw output.
type Extractor func(output string) Data

// Guard decides whether a step runs, given the accumulated context and the
// results produced so far.
type Guard func(vars Context, prior []Result) bool

// Funcs is the table of named extractors and guards available to a chain.
type Funcs struct {
	Extractors map[ExtractorID]Extractor
	Guards     map[GuardID]Guard
}

// Validate checks that every reference in steps resolves and that step names
// are present and unique.
func (f Funcs) Validate(steps []Step) error {
	var errs []error
	seen := make(map[string]struct{}, len(steps))
	for i, s := range steps {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("step %d: %w: empty name", i, ErrInvalidStep))
		} else if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("step %q: %w: duplicate name", s.Name, ErrInvalidStep))
		}
		seen[s.Name] = struct{}{}

		if s.Extractor != "" {
			if _, ok := f.Extractors[s.Extractor]; !ok {
				errs = append(errs, fmt.Errorf("step %q: %w %q", s.Name, ErrUnknownExtractor, s.Extractor))
			}
		}
		if s.Guard != "" {
			if _, ok := f.Guards[s.Guard]; !ok {
				errs = append(errs, fmt.Errorf("step %q: %w %q", s.Name, ErrUnknownGuard, s.Guard))
			}
		}
	}
	return errors.Join(errs...)
}

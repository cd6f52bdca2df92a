/*
Copyright 2025 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher enriches metric attributes with additional context.
// The enricher receives base attributes (backend, model) and returns an
// enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// EventAttributes is an AttributeEnricher that appends the EventContext
// stored in ctx, if any.
func EventAttributes(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return EventFromContext(ctx).EnrichAttributes(baseAttrs)
}

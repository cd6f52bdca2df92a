/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptforge_events_handled_total",
			Help: "Events handled, by kind and outcome status",
		},
		[]string{"kind", "status"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptforge_side_effect_failures_total",
			Help: "Repository mutations that failed after analysis",
		},
		[]string{"kind", "effect"},
	)

	labelsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptforge_labels_applied_total",
			Help: "Labels added to issues and pull requests",
		},
		[]string{"kind"},
	)
)

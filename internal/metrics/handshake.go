// Notify Relay Gateway
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// SPDX-License-Identifier: LGPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubscribeFlowStarted counts wc_notifySubscribe requests accepted for processing.
	SubscribeFlowStarted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscribe_flow",
			Name:      "started_total",
			Help:      "Total number of subscribe flows started",
		},
		[]string{"stage"}, // decrypt, verify_identity, sign_response
	)

	// SubscribeFlowCompleted counts subscribe flows that reached a terminal state.
	SubscribeFlowCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscribe_flow",
			Name:      "completed_total",
			Help:      "Total number of subscribe flows completed",
		},
		[]string{"status"}, // success, failure
	)

	// SubscribeFlowFailed counts subscribe flow failures by cause.
	SubscribeFlowFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscribe_flow",
			Name:      "failed_total",
			Help:      "Total number of failed subscribe flows by error type",
		},
		[]string{"error_type"}, // invalid_envelope, identity_denied, unknown_project
	)

	// SubscribeFlowStageDuration tracks per-stage latency within the subscribe flow.
	SubscribeFlowStageDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "subscribe_flow",
			Name:      "stage_duration_seconds",
			Help:      "Subscribe flow stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"stage"},
	)
)

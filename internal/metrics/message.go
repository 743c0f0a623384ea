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
	// CarrierMessagesProcessed tracks carrier frames published or received.
	CarrierMessagesProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "carrier",
			Name:      "messages_processed_total",
			Help:      "Total number of carrier messages processed",
		},
		[]string{"direction", "status"}, // publish/receive, success/failure
	)

	// CarrierReconnects counts relay reconnect attempts.
	CarrierReconnects = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "carrier",
			Name:      "reconnects_total",
			Help:      "Total number of relay reconnect attempts",
		},
	)

	// CarrierMessageProcessingDuration tracks carrier send/receive latency.
	CarrierMessageProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "carrier",
			Name:      "processing_duration_seconds",
			Help:      "Carrier message processing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~205ms
		},
	)

	// CarrierMessageSize tracks carrier frame sizes.
	CarrierMessageSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "carrier",
			Name:      "message_size_bytes",
			Help:      "Carrier message size in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
	)
)

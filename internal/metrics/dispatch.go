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
	// DispatchQueueDepth tracks how many carrier messages are buffered
	// waiting for a free dispatcher worker.
	DispatchQueueDepth = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Number of carrier messages queued for dispatch",
		},
	)

	// DispatchDropped counts messages dropped because the dispatcher was
	// shutting down or the queue was full.
	DispatchDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dropped_total",
			Help:      "Total number of carrier messages dropped before dispatch",
		},
		[]string{"reason"}, // queue_full, shutting_down
	)

	// DispatchWorkersActive tracks in-flight dispatcher goroutines.
	DispatchWorkersActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "workers_active",
			Help:      "Number of dispatcher goroutines currently processing a message",
		},
	)
)

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
	// SubscriptionsCreated tracks subscription registrations.
	SubscriptionsCreated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "created_total",
			Help:      "Total number of subscriptions created",
		},
		[]string{"status"}, // success, failure
	)

	// SubscriptionsActive tracks the number of registered subscriptions.
	SubscriptionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "active",
			Help:      "Number of currently active subscriptions",
		},
	)

	// SubscriptionsUpdated tracks subscriptions updated via wc_notifyUpdate.
	SubscriptionsUpdated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "updated_total",
			Help:      "Total number of subscriptions updated",
		},
	)

	// SubscriptionOperationDuration tracks register/update/lookup latency.
	SubscriptionOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "subscriptions",
			Name:      "operation_duration_seconds",
			Help:      "Subscription store operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"operation"}, // register, update, lookup
	)
)

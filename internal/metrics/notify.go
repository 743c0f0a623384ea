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
	// NotifySubscribeTotal counts wc_notifySubscribe outcomes.
	NotifySubscribeTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "subscribe_total",
			Help:      "Total number of wc_notifySubscribe requests handled",
		},
		[]string{"result"}, // success, invalid_auth, unknown_project, denied
	)

	// NotifyUpdateTotal counts wc_notifyUpdate outcomes.
	NotifyUpdateTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "update_total",
			Help:      "Total number of wc_notifyUpdate requests handled",
		},
		[]string{"result"},
	)

	// HandlerDuration tracks wall time spent in each notify handler.
	HandlerDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "handler_duration_seconds",
			Help:      "Duration of notify handler invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"handler"}, // subscribe, update
	)
)

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

// Package metrics exposes the gateway's Prometheus metrics: one registry
// shared by every subsystem (notify handlers, carrier transport,
// subscription lifecycle, crypto operations).
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "notifygateway"

// Registry is the registry every metric in this package registers against.
// cmd/notify-gatewayd serves it at /metrics via Handler.
var Registry = prometheus.NewRegistry()

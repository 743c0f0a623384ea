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

// Command notify-gatewayd runs the relay-facing gateway process: it loads
// configuration, connects to the carrier relay and the backing store, and
// dispatches inbound subscribe/update messages to the notify handler.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notify-gatewayd",
	Short: "Notify Relay Gateway - encrypted pub/sub subscription relay",
	Long: `notify-gatewayd brokers the encrypted subscribe/update protocol between
dapps and wallets over a carrier relay, persisting subscriptions in
PostgreSQL (or an in-memory store for local development).`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

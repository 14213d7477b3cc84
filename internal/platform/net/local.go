// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net holds network helpers: local address discovery and the
// outbound URL allowlist.
package net

import (
	"context"
	"fmt"
	"net"
)

// probeAddr is never contacted; connecting a UDP socket only selects a route.
const probeAddr = "1.1.1.1:80"

// LocalIP returns the address of the interface that routes to the internet,
// which is the address a cast device on the LAN can reach us at.
func LocalIP(ctx context.Context) (net.IP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", probeAddr)
	if err != nil {
		return nil, fmt.Errorf("probe local address: %w", err)
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil {
		return nil, fmt.Errorf("probe local address: unexpected %T", conn.LocalAddr())
	}
	return addr.IP, nil
}

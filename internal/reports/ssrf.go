// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package reports

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/myr0nl/EvacuationHub-sub000/internal/models"
)

// ValidateImageURL rejects image URLs that could be used to probe internal
// networks: only http(s) schemes, and the host must not resolve to a
// loopback, private, or link-local address.
func ValidateImageURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: invalid image url: %v", models.ErrInvalid, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: image url scheme %q not allowed", models.ErrInvalid, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: image url has no host", models.ErrInvalid)
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: image url host %q not allowed", models.ErrInvalid, host)
	}

	// A literal IP is checked directly; a name is resolved and every
	// address checked, so DNS answers pointing inward are rejected too.
	if ip := net.ParseIP(host); ip != nil {
		if blockedIP(ip) {
			return fmt.Errorf("%w: image url host %s is not publicly routable", models.ErrInvalid, ip)
		}
		return nil
	}
	addrs, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("%w: image url host %q does not resolve: %v", models.ErrInvalid, host, err)
	}
	for _, ip := range addrs {
		if blockedIP(ip) {
			return fmt.Errorf("%w: image url host %q resolves to non-public address %s", models.ErrInvalid, host, ip)
		}
	}
	return nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

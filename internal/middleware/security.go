// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders applies the standard response hardening headers. HSTS is
// sent only in production, where TLS termination is guaranteed.
func SecurityHeaders(production bool, connectOrigins []string) func(http.Handler) http.Handler {
	csp := buildCSP(connectOrigins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), payment=(), geolocation=(self)")
			h.Set("Content-Security-Policy", csp)
			if production {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func buildCSP(connectOrigins []string) string {
	connect := "'self'"
	if len(connectOrigins) > 0 {
		var cleaned []string
		for _, o := range connectOrigins {
			if o != "" {
				cleaned = append(cleaned, o)
			}
		}
		if len(cleaned) > 0 {
			connect = "'self' " + strings.Join(cleaned, " ")
		}
	}
	directives := []string{
		"default-src 'self'",
		"script-src 'self'",
		"style-src 'self'",
		"img-src 'self' data:",
		"connect-src " + connect,
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

// MaxBytes caps request body size; oversized bodies fail on read with the
// handler's own decode error path.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"display_name":"Paradise, Butte County, California, United States","address":{"town":"Paradise","county":"Butte County","state":"California","country":"United States"}}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "test-agent")
	got := c.ReverseGeocode(context.Background(), 39.75, -121.6)
	if got != "Paradise, California" {
		t.Errorf("ReverseGeocode = %q, want %q", got, "Paradise, California")
	}
}

func TestReverseGeocode_FailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "test-agent")
	if got := c.ReverseGeocode(context.Background(), 39.75, -121.6); got != "" {
		t.Errorf("ReverseGeocode = %q, want empty on failure", got)
	}
}

func TestReverseGeocode_BreakerStopsHammering(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, "test-agent")
	c.limiter.SetLimit(1000) // don't wait a second per call in tests
	for i := 0; i < 10; i++ {
		c.ReverseGeocode(context.Background(), 39.75, -121.6)
	}
	if n := atomic.LoadInt64(&hits); n > 4 {
		t.Errorf("upstream hit %d times, breaker should have opened after 3 failures", n)
	}
}

func TestShortName(t *testing.T) {
	tests := []struct {
		name string
		nr   nominatimResponse
		want string
	}{
		{"city and state", withAddress("Fresno", "", "", "", "California"), "Fresno, California"},
		{"village fallback", withAddress("", "", "Dunsmuir", "", "California"), "Dunsmuir, California"},
		{"county fallback", withAddress("", "", "", "Mono County", "California"), "Mono County, California"},
		{"display name fallback", nominatimResponse{DisplayName: "Pacific Ocean"}, "Pacific Ocean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortName(tt.nr); got != tt.want {
				t.Errorf("shortName = %q, want %q", got, tt.want)
			}
		})
	}
}

func withAddress(city, town, village, county, state string) nominatimResponse {
	var nr nominatimResponse
	nr.Address.City = city
	nr.Address.Town = town
	nr.Address.Village = village
	nr.Address.County = county
	nr.Address.State = state
	return nr
}

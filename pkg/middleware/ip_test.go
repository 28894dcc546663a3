package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// TestExtractClientIP tests the IP extraction for each configured source
func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		config     *IPConfig
		remoteAddr string
		header     http.Header
		want       string
	}{
		{
			name:       "x-forwarded-for leftmost",
			config:     DefaultIPConfig(),
			remoteAddr: "10.0.0.1:1234",
			header:     http.Header{"X-Forwarded-For": {"203.0.113.5, 10.0.0.2"}},
			want:       "203.0.113.5",
		},
		{
			name:       "x-forwarded-for missing falls back",
			config:     DefaultIPConfig(),
			remoteAddr: "10.0.0.1:1234",
			want:       "10.0.0.1",
		},
		{
			name:       "x-real-ip",
			config:     &IPConfig{Source: IPSourceXRealIP, TrustProxy: true},
			remoteAddr: "10.0.0.1:1234",
			header:     http.Header{"X-Real-Ip": {"198.51.100.7"}},
			want:       "198.51.100.7",
		},
		{
			name:       "custom header",
			config:     &IPConfig{Source: IPSourceCustomHeader, CustomHeader: "CF-Connecting-IP", TrustProxy: true},
			remoteAddr: "10.0.0.1:1234",
			header:     http.Header{"Cf-Connecting-Ip": {"198.51.100.8"}},
			want:       "198.51.100.8",
		},
		{
			name:       "untrusted proxy ignores header",
			config:     &IPConfig{Source: IPSourceXForwardedFor, TrustProxy: false},
			remoteAddr: "10.0.0.1:1234",
			header:     http.Header{"X-Forwarded-For": {"203.0.113.5"}},
			want:       "10.0.0.1",
		},
		{
			name:       "remote addr ipv6",
			config:     &IPConfig{Source: IPSourceRemoteAddr},
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "remote addr without port",
			config:     &IPConfig{Source: IPSourceRemoteAddr},
			remoteAddr: "10.0.0.9",
			want:       "10.0.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := common.NewRequest(context.Background(), "GET", "/", tt.remoteAddr, tt.header, nil)
			if got := extractClientIP(req, tt.config); got != tt.want {
				t.Errorf("Expected IP %q, got %q", tt.want, got)
			}
		})
	}
}

// TestClientIPMiddleware tests that the IP is stored in the request context
func TestClientIPMiddleware(t *testing.T) {
	mw := NewClientIP(nil)
	req := common.NewRequest(context.Background(), "GET", "/", "10.0.0.1:1234",
		http.Header{"X-Forwarded-For": {"203.0.113.5"}}, nil)

	if got := ClientIPFrom(req); got != "" {
		t.Errorf("Expected no client IP before middleware, got %q", got)
	}
	next, err := mw.Before(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := ClientIPFrom(next); got != "203.0.113.5" {
		t.Errorf("Expected client IP %q, got %q", "203.0.113.5", got)
	}
}

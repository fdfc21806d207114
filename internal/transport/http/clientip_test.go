package http

import (
	"net/http/httptest"
	"testing"
)

func TestClientAddr(t *testing.T) {
	r, err := newAddrResolver([]string{"10.0.0.1", "192.168.0.0/16"})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct peer", "203.0.113.7:5000", "", "203.0.113.7"},
		{"untrusted peer ignores header", "203.0.113.7:5000", "1.2.3.4", "203.0.113.7"},
		{"trusted peer uses header", "10.0.0.1:5000", "198.51.100.2", "198.51.100.2"},
		{"skips trusted hops", "10.0.0.1:5000", "198.51.100.2, 192.168.1.9", "198.51.100.2"},
		{"stops at spoofed prefix", "10.0.0.1:5000", "6.6.6.6, 198.51.100.2", "198.51.100.2"},
		{"trusted peer without header", "10.0.0.1:5000", "", "10.0.0.1"},
		{"garbage header", "10.0.0.1:5000", "not-an-ip", "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := r.clientAddr(req); got != tc.want {
				t.Fatalf("clientAddr = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewAddrResolverRejectsGarbage(t *testing.T) {
	if _, err := newAddrResolver([]string{"proxy.local"}); err == nil {
		t.Fatal("expected error for hostname")
	}
}

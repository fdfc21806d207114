package http

import (
	"fmt"
	"net"
	stdhttp "net/http"
	"strings"
)

// addrResolver finds the client address of a request. X-Forwarded-For is
// honored only when the direct peer is a trusted proxy.
type addrResolver struct {
	trusted []*net.IPNet
}

func newAddrResolver(proxies []string) (*addrResolver, error) {
	r := &addrResolver{}
	for _, p := range proxies {
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("parse trusted proxy %q: not an IP or CIDR", p)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			p = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, cidr, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxy %q: %w", p, err)
		}
		r.trusted = append(r.trusted, cidr)
	}
	return r, nil
}

func (r *addrResolver) isTrusted(ip net.IP) bool {
	for _, cidr := range r.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// clientAddr walks X-Forwarded-For from the right and returns the first hop
// that is not a trusted proxy.
func (r *addrResolver) clientAddr(req *stdhttp.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		host = req.RemoteAddr
	}
	remote := net.ParseIP(host)
	if remote == nil || !r.isTrusted(remote) {
		return host
	}

	hops := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		ip := net.ParseIP(hop)
		if ip == nil {
			break
		}
		if i == 0 || !r.isTrusted(ip) {
			return ip.String()
		}
	}
	return host
}

package clientip

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

// Resolver picks the client address for rate limiting and the security audit log.
// X-Forwarded-For is only read when the direct peer is a trusted proxy; the client is
// then the rightmost hop that is not itself trusted.
type Resolver struct {
	trusted []netip.Prefix
}

// NewResolver parses trusted proxy ranges. Bare addresses are treated as /32 or /128.
func NewResolver(proxies []string) (*Resolver, error) {
	res := &Resolver{}
	for _, p := range proxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			addr, err := netip.ParseAddr(p)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
			}
			res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		res.trusted = append(res.trusted, prefix.Masked())
	}
	return res, nil
}

func (res *Resolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range res.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the client address for r.
func (res *Resolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if len(res.trusted) == 0 || !res.isTrusted(peer) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !res.isTrusted(hop) {
			return hop
		}
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return strings.TrimSpace(host)
}

var defaultResolver atomic.Pointer[Resolver]

// SetTrustedProxies configures the resolver used by RealClientIP. Call once at startup.
func SetTrustedProxies(proxies []string) error {
	res, err := NewResolver(proxies)
	if err != nil {
		return err
	}
	defaultResolver.Store(res)
	return nil
}

// RealClientIP returns the client IP from the request.
// Without trusted proxies only r.RemoteAddr is used.
func RealClientIP(r *http.Request) string {
	if res := defaultResolver.Load(); res != nil {
		return res.ClientIP(r)
	}
	return remoteHost(r.RemoteAddr)
}

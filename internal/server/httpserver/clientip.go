package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// TrustedProxies lists the peers allowed to report the client address
// through X-Forwarded-For or X-Real-IP.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies parses IP addresses and CIDR prefixes. A bare address
// is treated as a single-host prefix.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: not an IP address or CIDR prefix", entry)
		}
		addr = addr.Unmap().WithZone("")
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}

func (t TrustedProxies) trusts(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the client address of r. Forwarding headers count only
// when the connection comes from a trusted proxy; X-Forwarded-For is walked
// right to left past trusted hops.
func (t TrustedProxies) ClientIP(r *http.Request) string {
	peer, ok := peerAddr(r)
	if !ok {
		return peerHost(r)
	}
	if !t.trusts(peer) {
		return peer.String()
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		client := peer
		hops := strings.Split(strings.Join(values, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			client = hop.Unmap()
			if !t.trusts(hop) {
				break
			}
		}
		return client.String()
	}

	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return peer.String()
}

type clientIPKey struct{}

// ResolveClientIP stores the client address of each request for the
// middlewares and handlers behind it.
func ResolveClientIP(trusted TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, trusted.ClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getClientIP returns the address stored by ResolveClientIP, or the
// connection address when the request did not pass through it.
func getClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return peerHost(r)
}

func peerAddr(r *http.Request) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(peerHost(r))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// peerHost strips the port from RemoteAddr; SplitHostPort handles IPv6
// addresses like [::1]:8080.
func peerHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

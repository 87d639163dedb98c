package pkg

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

var dockerBridges = mustParseCIDR("172.16.0.0/12")

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// hostOnly strips an optional port and IPv6 brackets.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}

// IPIsLocal reports whether addr (with or without port) is loopback or a
// docker bridge gateway, i.e. a request that did not come from a real client.
func IPIsLocal(addr string) bool {
	ip := net.ParseIP(hostOnly(addr))
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	ip4 := ip.To4()
	return ip4 != nil && dockerBridges.Contains(ip4) && ip4[2] == 0 && ip4[3] == 1
}

// ReadUserIP returns the client IP, preferring proxy headers over the remote address.
// Local callers all collapse to "localhost".
func ReadUserIP(r *http.Request) (string, error) {
	candidate := strings.TrimSpace(r.Header.Get("X-Real-Ip"))
	if candidate == "" {
		// first entry is the originating client
		candidate = strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	}
	if candidate == "" {
		candidate = r.RemoteAddr
	}

	if IPIsLocal(candidate) {
		return "localhost", nil
	}

	ip := net.ParseIP(hostOnly(candidate))
	if ip == nil {
		return "", fmt.Errorf("ip addr %q is invalid", candidate)
	}
	return ip.String(), nil
}

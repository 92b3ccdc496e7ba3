// Package security sets response headers, resolves client addresses behind
// proxies and flags requests that look like scans.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"

	"scoreboard/internal/log"
)

type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector never blocks: the board's handlers validate their own input, so
// a flagged request is only counted and logged.
type Detector struct {
	mu      sync.RWMutex
	trusted []netip.Prefix

	suspicious int64
	logger     *log.Logger
}

var scanFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// defaultTrusted covers loopback and the private ranges a home reverse proxy
// would sit in.
var defaultTrusted = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// NewDetector trusts loopback and private ranges. logger may be nil.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.WithComponent(log.ComponentSecurity)
	}
	d := &Detector{logger: logger}
	for _, cidr := range defaultTrusted {
		d.trusted = append(d.trusted, netip.MustParsePrefix(cidr))
	}
	return d
}

// AddTrustedProxy trusts forwarding headers from peers inside cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
	}
	d.mu.Lock()
	d.trusted = append(d.trusted, p.Masked())
	d.mu.Unlock()
	return nil
}

// reason names the first scan signal r carries, or "" for a clean request.
func reason(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, frag := range scanFragments {
		if strings.Contains(target, frag) {
			return "pattern " + frag
		}
	}
	ua := strings.ToLower(r.UserAgent())
	for _, agent := range scannerAgents {
		if strings.Contains(ua, agent) {
			return "scanner " + agent
		}
	}
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return "method " + r.Method
	}
	if len(r.URL.String()) > 2048 {
		return "long url"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return "forwarding chain"
	}
	return ""
}

// DetectSuspiciousRequest reports whether r looks like a scan and counts it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	if reason(r) == "" {
		return false
	}
	atomic.AddInt64(&d.suspicious, 1)
	return true
}

func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if why := reason(r); why != "" {
			atomic.AddInt64(&d.suspicious, 1)
			d.logger.WarnContext(r.Context(), "Suspicious request",
				"reason", why,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the peer address, or the first X-Forwarded-For
// (then X-Real-IP) entry when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !d.trustedPeer(addr.Unmap()) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return peer
}

func (d *Detector) trustedPeer(addr netip.Addr) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: atomic.LoadInt64(&d.suspicious)}
}

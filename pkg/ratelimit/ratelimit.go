// Package ratelimit implements per-client token-bucket rate limiting
// for the HTTP API.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	cleanupInterval = time.Minute
	entryTTL        = time.Minute
)

// Config configures a Limiter.
type Config struct {
	Rate  float64 // tokens per second
	Burst int     // bucket capacity

	// TrustedProxies lists CIDR ranges whose X-Forwarded-For /
	// X-Real-IP headers are honored when resolving the client IP.
	TrustedProxies []string
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// Limiter tracks one token bucket per client IP. Stale buckets are
// evicted by a background goroutine; call Stop to shut it down.
type Limiter struct {
	rate    float64
	burst   float64
	proxies []*net.IPNet

	mu      sync.Mutex
	buckets map[string]*bucket

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New creates a Limiter and starts its eviction goroutine.
func New(cfg Config) *Limiter {
	rate := cfg.Rate
	if rate <= 0 {
		rate = 100
	}
	burst := float64(cfg.Burst)
	if burst <= 0 {
		burst = rate * 2
	}

	l := &Limiter{
		rate:      rate,
		burst:     burst,
		buckets:   make(map[string]*bucket),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	for _, cidr := range cfg.TrustedProxies {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			l.proxies = append(l.proxies, network)
		}
	}

	go l.evictLoop()
	return l
}

// Allow consumes one token for ip. Returns whether the request may
// proceed and, when it may not, how many seconds to wait before
// retrying.
func (l *Limiter) Allow(ip string) (allowed bool, retryAfterSec int64) {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: l.burst, lastUpdate: now}
		l.buckets[ip] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastUpdate).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	retry := int64((1 - b.tokens) / l.rate)
	if retry < 1 {
		retry = 1
	}
	return false, retry
}

// ClientIP resolves the client address of r, honoring forwarding
// headers only when the direct peer is a trusted proxy.
func (l *Limiter) ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !l.trusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return peer
}

func (l *Limiter) trusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, network := range l.proxies {
		if network.Contains(parsed) {
			return true
		}
	}
	return false
}

// Stop terminates the eviction goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
	<-l.stoppedCh
}

func (l *Limiter) evictLoop() {
	defer close(l.stoppedCh)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) evictStale() {
	cutoff := time.Now().Add(-entryTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		b.mu.Lock()
		stale := b.lastUpdate.Before(cutoff)
		b.mu.Unlock()
		if stale {
			delete(l.buckets, ip)
		}
	}
}

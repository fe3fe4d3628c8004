// Package shield decides whether an inbound request may reach the API at all.
// It combines request-shape screening, bot detection with reverse-DNS
// verification of search engine crawlers, and a per-IP token bucket kept in
// Redis.
package shield

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the verdict for one request.
type Decision string

const (
	Allow         Decision = "allow"
	DenyRateLimit Decision = "deny_rate_limit"
	DenyBot       Decision = "deny_bot"
	DenySpoofed   Decision = "deny_spoofed"
	DenyShield    Decision = "deny_shield"
)

// Denied reports whether the decision blocks the request.
func (d Decision) Denied() bool { return d != Allow }

// Fingerprint is the part of a request the shield looks at.
type Fingerprint struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
	RawQuery  string
}

// Resolver is the DNS surface used to verify crawlers. *net.Resolver
// satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Config tunes the token bucket.
type Config struct {
	Capacity       int
	RefillRate     int
	RefillInterval time.Duration
}

// DefaultConfig allows bursts of 15 and refills 10 tokens every 10 seconds.
func DefaultConfig() Config {
	return Config{Capacity: 15, RefillRate: 10, RefillInterval: 10 * time.Second}
}

// Shield evaluates request fingerprints.
type Shield struct {
	rdb      *redis.Client
	cfg      Config
	resolver Resolver
	now      func() time.Time
}

// New creates a Shield. A nil Redis client disables rate limiting and a nil
// resolver falls back to net.DefaultResolver.
func New(rdb *redis.Client, cfg Config, resolver Resolver) *Shield {
	if cfg.Capacity <= 0 || cfg.RefillRate <= 0 || cfg.RefillInterval <= 0 {
		cfg = DefaultConfig()
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Shield{rdb: rdb, cfg: cfg, resolver: resolver, now: time.Now}
}

// Evaluate runs the rules in order and returns the first denial. Rate-limit
// store errors fail open: the decision is Allow and the error is returned for
// logging.
func (s *Shield) Evaluate(ctx context.Context, fp Fingerprint) (Decision, error) {
	if isSuspicious(fp) {
		return DenyShield, nil
	}

	agent := classifyAgent(fp.UserAgent)
	switch agent.kind {
	case agentBot:
		return DenyBot, nil
	case agentCrawler:
		if !s.verifyCrawler(ctx, fp.IP, agent.domains) {
			return DenySpoofed, nil
		}
	}

	allowed, err := s.take(ctx, fp.IP)
	if err != nil {
		return Allow, fmt.Errorf("token bucket: %w", err)
	}
	if !allowed {
		return DenyRateLimit, nil
	}
	return Allow, nil
}

// verifyCrawler does forward-confirmed reverse DNS: the PTR name must sit
// under one of the crawler's domains and resolve back to the same address.
func (s *Shield) verifyCrawler(ctx context.Context, ip string, domains []string) bool {
	if net.ParseIP(ip) == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names, err := s.resolver.LookupAddr(ctx, ip)
	if err != nil {
		return false
	}
	for _, name := range names {
		host := strings.TrimSuffix(strings.ToLower(name), ".")
		if !hasDomainSuffix(host, domains) {
			continue
		}
		addrs, err := s.resolver.LookupHost(ctx, host)
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if addr == ip {
				return true
			}
		}
	}
	return false
}

func hasDomainSuffix(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

var suspiciousFragments = []string{
	"../",
	"..\\",
	"<script",
	"javascript:",
	"/etc/passwd",
	"union select",
	"' or '1'='1",
	"/.git/",
	"/.env",
}

func isSuspicious(fp Fingerprint) bool {
	target := fp.Path
	if fp.RawQuery != "" {
		target += "?" + fp.RawQuery
	}
	if decoded, err := url.QueryUnescape(target); err == nil {
		target = decoded
	}
	target = strings.ToLower(target)
	for _, frag := range suspiciousFragments {
		if strings.Contains(target, frag) {
			return true
		}
	}
	return false
}

package enrich

import (
	"context"
	"net"
	"sync"
	"time"
)

type GeoInfo struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
}

type Provider interface {
	Lookup(ctx context.Context, ip net.IP) (GeoInfo, error)
}

type cached struct {
	info GeoInfo
	at   time.Time
}

// Service caches provider lookups per client address. Private and loopback
// addresses are never looked up.
type Service struct {
	geo   Provider
	ttl   time.Duration
	mu    sync.Mutex
	cache map[string]cached
	now   func() time.Time
}

func NewService(geo Provider, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &Service{
		geo:   geo,
		ttl:   ttl,
		cache: map[string]cached{},
		now:   time.Now,
	}
}

func (s *Service) Country(ctx context.Context, ip string) string {
	if s == nil || s.geo == nil {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return ""
	}
	now := s.now()
	s.mu.Lock()
	if c, ok := s.cache[ip]; ok && now.Sub(c.at) < s.ttl {
		s.mu.Unlock()
		return c.info.Country
	}
	s.mu.Unlock()

	info, err := s.geo.Lookup(ctx, parsed)
	if err != nil {
		return ""
	}
	s.mu.Lock()
	s.cache[ip] = cached{info: info, at: now}
	s.mu.Unlock()
	return info.Country
}

package netutil

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits outbound requests per hostname, so backend calls
// and job-page preview fetches can't hammer any single host.
type HostLimiter struct {
	mu sync.Mutex
	m  map[string]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	return &HostLimiter{
		m: make(map[string]*rate.Limiter),
		r: rate.Limit(reqPerSec),
		b: burst,
	}
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

// Wait blocks until the host's limiter admits one request or ctx ends.
func (hl *HostLimiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		host = "_"
	}
	return hl.limiterFor(host).Wait(ctx)
}

// WaitURL is Wait keyed by the URL's hostname.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.Wait(ctx, "_")
	}
	return hl.Wait(ctx, u.Host)
}

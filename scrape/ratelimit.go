package scrape

import (
	"context"
	"strings"
	"sync"

	"github.com/fwojciec/medprice"
	"golang.org/x/time/rate"
)

var _ medprice.DomainLimiter = (*DomainLimiter)(nil)

// DefaultRPS is the request rate allowed per pharmacy domain.
const DefaultRPS = 1.0

// DomainLimiter provides per-domain rate limiting using token buckets.
// Each domain gets its own limiter so requests to different pharmacies
// proceed concurrently. "www." prefixes and letter case are ignored when
// keying domains.
type DomainLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	rps       float64
	overrides map[string]float64
}

// NewDomainLimiter creates a new DomainLimiter with the specified requests
// per second limit and a burst of 1.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters:  make(map[string]*rate.Limiter),
		rps:       rps,
		overrides: make(map[string]float64),
	}
}

// SetRate overrides the limit for one domain. It takes effect for limiters
// created after the call.
func (d *DomainLimiter) SetRate(domain string, rps float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overrides[domainKey(domain)] = rps
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	key := domainKey(domain)

	d.mu.Lock()
	limiter, ok := d.limiters[key]
	if !ok {
		rps := d.rps
		if o, ok := d.overrides[key]; ok {
			rps = o
		}
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
		d.limiters[key] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}

func domainKey(domain string) string {
	return strings.TrimPrefix(strings.ToLower(domain), "www.")
}

package medprice

import "time"

// Default freshness policy values.
const (
	DefaultMinMatches = 3
	DefaultMaxAge     = 24 * time.Hour
)

// FreshnessPolicy decides whether catalog matches can answer a query
// without enrichment.
type FreshnessPolicy struct {
	// MinMatches is the fewest matches that count as a sufficient answer.
	MinMatches int

	// MaxAge is how long an entry stays fresh after its last update.
	MaxAge time.Duration
}

// DefaultFreshnessPolicy returns the policy used when none is configured:
// at least 3 matches, none older than 24 hours.
func DefaultFreshnessPolicy() FreshnessPolicy {
	return FreshnessPolicy{
		MinMatches: DefaultMinMatches,
		MaxAge:     DefaultMaxAge,
	}
}

// IsSufficient reports whether matches answer a query at time now.
// Too few matches or any single stale match makes the answer insufficient.
func (p FreshnessPolicy) IsSufficient(matches []*Match, now time.Time) bool {
	if len(matches) < p.MinMatches {
		return false
	}
	cutoff := now.Add(-p.MaxAge)
	for _, m := range matches {
		if m.Entry == nil || m.Entry.UpdatedAt.Before(cutoff) {
			return false
		}
	}
	return true
}

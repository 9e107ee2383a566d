// Package bloom provides candidate URL deduplication using Bloom filters.
package bloom

import (
	"net/url"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter deduplicates URLs. The Bloom filter answers most lookups; its
// positives are confirmed against the exact set of recorded keys, so a
// distinct URL is never reported as seen.
// It is safe for concurrent use.
type Filter struct {
	mu   sync.Mutex
	f    *bloom.BloomFilter
	keys map[string]struct{}
}

// NewFilter creates a new Bloom filter sized for n expected items
// with the given false positive rate.
func NewFilter(n uint, fpRate float64) *Filter {
	return &Filter{
		f:    bloom.NewWithEstimates(n, fpRate),
		keys: make(map[string]struct{}, n),
	}
}

// Normalize returns the form of rawURL used for deduplication: fragment
// dropped, scheme and host lower-cased, trailing slash trimmed.
// Unparseable input is returned trimmed.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}

// Seen reports whether the normalized URL was already recorded and records it.
func (f *Filter) Seen(rawURL string) bool {
	key := Normalize(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contains(key) {
		return true
	}
	f.f.AddString(key)
	f.keys[key] = struct{}{}
	return false
}

// Test reports whether the normalized URL was recorded.
func (f *Filter) Test(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contains(Normalize(rawURL))
}

func (f *Filter) contains(key string) bool {
	if !f.f.TestString(key) {
		return false
	}
	_, ok := f.keys[key]
	return ok
}

// EstimatedCount returns the approximate number of items in the filter.
func (f *Filter) EstimatedCount() uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint(f.f.ApproximatedSize())
}

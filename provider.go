package medprice

import "context"

// DefaultSearchLimit is the number of candidate documents requested per search.
const DefaultSearchLimit = 5

// Candidate is a document returned by an external search.
type Candidate struct {
	URL   string
	Title string

	// Record holds data extracted inline by the provider, if any.
	// It may be nil or incomplete; check Record.Valid.
	Record *Record
}

// SearchProvider searches the web for documents about a query.
type SearchProvider interface {
	// Search returns up to limit candidate documents. Providers that support
	// inline extraction fill Candidate.Record using RecordSchema.
	Search(ctx context.Context, query string, limit int) ([]*Candidate, error)
}

// Scraper extracts a record from a single document.
type Scraper interface {
	// Scrape fetches url and extracts a record using RecordSchema.
	// Returns a nil record without error when the page holds no product data.
	Scrape(ctx context.Context, url string) (*Record, error)
}

// RecordExtractor extracts a record from page content.
type RecordExtractor interface {
	// ExtractRecord interprets content (HTML or Markdown, as documented by the
	// implementation) taken from url. Returns nil when nothing is found.
	ExtractRecord(ctx context.Context, url, content string) (*Record, error)
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}

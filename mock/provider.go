package mock

import (
	"context"

	"github.com/fwojciec/medprice"
)

var (
	_ medprice.SearchProvider  = (*SearchProvider)(nil)
	_ medprice.Scraper         = (*Scraper)(nil)
	_ medprice.RecordExtractor = (*RecordExtractor)(nil)
	_ medprice.DomainLimiter   = (*DomainLimiter)(nil)
)

// SearchProvider is a mock implementation of medprice.SearchProvider.
type SearchProvider struct {
	SearchFn func(ctx context.Context, query string, limit int) ([]*medprice.Candidate, error)
}

func (p *SearchProvider) Search(ctx context.Context, query string, limit int) ([]*medprice.Candidate, error) {
	return p.SearchFn(ctx, query, limit)
}

// Scraper is a mock implementation of medprice.Scraper.
type Scraper struct {
	ScrapeFn func(ctx context.Context, url string) (*medprice.Record, error)
}

func (s *Scraper) Scrape(ctx context.Context, url string) (*medprice.Record, error) {
	return s.ScrapeFn(ctx, url)
}

// RecordExtractor is a mock implementation of medprice.RecordExtractor.
type RecordExtractor struct {
	ExtractRecordFn func(ctx context.Context, url, content string) (*medprice.Record, error)
}

func (e *RecordExtractor) ExtractRecord(ctx context.Context, url, content string) (*medprice.Record, error) {
	return e.ExtractRecordFn(ctx, url, content)
}

// DomainLimiter is a mock implementation of medprice.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

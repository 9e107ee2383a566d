// Package slog provides log/slog decorators for the medprice provider
// interfaces. Each call is logged once it returns, with its duration and
// error.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/medprice"
)

var (
	_ medprice.SearchProvider  = (*LoggingSearchProvider)(nil)
	_ medprice.Scraper         = (*LoggingScraper)(nil)
	_ medprice.Fetcher         = (*LoggingFetcher)(nil)
	_ medprice.RecordExtractor = (*LoggingRecordExtractor)(nil)
)

// LoggingSearchProvider wraps a SearchProvider with logging.
type LoggingSearchProvider struct {
	next   medprice.SearchProvider
	logger *slog.Logger
}

// NewLoggingSearchProvider creates a new LoggingSearchProvider.
func NewLoggingSearchProvider(next medprice.SearchProvider, logger *slog.Logger) *LoggingSearchProvider {
	return &LoggingSearchProvider{next: next, logger: logger}
}

// Search delegates to the wrapped provider and logs the operation.
func (p *LoggingSearchProvider) Search(ctx context.Context, query string, limit int) (candidates []*medprice.Candidate, err error) {
	defer func(begin time.Time) {
		inline := 0
		for _, c := range candidates {
			if c.Record.Valid() {
				inline++
			}
		}
		p.logger.Info("search",
			"query", query,
			"limit", limit,
			"count", len(candidates),
			"inline", inline,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return p.next.Search(ctx, query, limit)
}

// LoggingScraper wraps a Scraper with logging.
type LoggingScraper struct {
	next   medprice.Scraper
	logger *slog.Logger
}

// NewLoggingScraper creates a new LoggingScraper.
func NewLoggingScraper(next medprice.Scraper, logger *slog.Logger) *LoggingScraper {
	return &LoggingScraper{next: next, logger: logger}
}

// Scrape delegates to the wrapped scraper and logs the operation.
func (s *LoggingScraper) Scrape(ctx context.Context, url string) (rec *medprice.Record, err error) {
	defer func(begin time.Time) {
		s.logger.Info("scrape",
			"url", url,
			"record", rec,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Scrape(ctx, url)
}

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   medprice.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next medprice.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		f.logger.Debug("fetch",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *LoggingFetcher) Close() error {
	return f.next.Close()
}

// LoggingRecordExtractor wraps a RecordExtractor with logging.
type LoggingRecordExtractor struct {
	next   medprice.RecordExtractor
	name   string
	logger *slog.Logger
}

// NewLoggingRecordExtractor creates a new LoggingRecordExtractor. name
// identifies the extractor in log lines, e.g. "gemini" or "jsonld".
func NewLoggingRecordExtractor(next medprice.RecordExtractor, name string, logger *slog.Logger) *LoggingRecordExtractor {
	return &LoggingRecordExtractor{next: next, name: name, logger: logger}
}

// ExtractRecord delegates to the wrapped extractor and logs the operation.
func (e *LoggingRecordExtractor) ExtractRecord(ctx context.Context, url, content string) (rec *medprice.Record, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("extract record",
			"extractor", e.name,
			"url", url,
			"bytes", len(content),
			"valid", rec.Valid(),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.ExtractRecord(ctx, url, content)
}

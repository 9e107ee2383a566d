// Package scrape implements the local fallback scraper used when a search
// provider returns a candidate without an inline record.
//
// A page is fetched politely (per-domain rate limit, retries with backoff)
// and then read in stages. Structured data is tried first; pages without it
// go through main-content extraction and Markdown conversion to an LLM
// record extractor.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/medprice"
)

// Ensure Scraper implements medprice.Scraper at compile time.
var _ medprice.Scraper = (*Scraper)(nil)

// DefaultMaxChars bounds the Markdown handed to the LLM when no token
// counter is configured.
const DefaultMaxChars = 60000

// Scraper implements medprice.Scraper by running a local extraction pipeline.
type Scraper struct {
	Fetcher medprice.Fetcher

	// Limiter is optional.
	Limiter medprice.DomainLimiter

	// Structured reads records from HTML markup, e.g. JSON-LD. Optional.
	Structured medprice.RecordExtractor

	// Extractors are tried in order until one yields content.
	Extractors []medprice.Extractor
	Converter  medprice.Converter

	// LLM reads records from Markdown. Without it, pages lacking structured
	// data yield no record.
	LLM medprice.RecordExtractor

	// Tokens and MaxTokens bound the Markdown sent to LLM. When Tokens is
	// nil, MaxChars applies instead.
	Tokens    medprice.TokenCounter
	MaxTokens int
	MaxChars  int

	RetryDelays []time.Duration
	Logger      *slog.Logger
}

// NewScraper returns a Scraper with default retry delays.
func NewScraper(fetcher medprice.Fetcher, converter medprice.Converter, extractors ...medprice.Extractor) *Scraper {
	return &Scraper{
		Fetcher:     fetcher,
		Converter:   converter,
		Extractors:  extractors,
		MaxChars:    DefaultMaxChars,
		RetryDelays: DefaultRetryDelays(),
	}
}

// Scrape fetches rawURL and extracts a record. A nil record without error
// means the page holds no usable product data.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*medprice.Record, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, medprice.Errorf(medprice.EINVALID, "invalid URL %q", rawURL)
	}

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}

	html, err := FetchWithRetry(ctx, rawURL, s.Fetcher.Fetch, s.logger(), s.RetryDelays)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	var partial *medprice.Record
	if s.Structured != nil {
		rec, err := s.Structured.ExtractRecord(ctx, rawURL, html)
		if err != nil {
			s.logger().Debug("structured extraction failed", "url", rawURL, "err", err)
		} else if rec.Valid() {
			return rec, nil
		}
		partial = rec
	}

	if s.LLM == nil {
		return nil, nil
	}

	md, err := s.markdown(rawURL, html)
	if err != nil {
		return nil, err
	}
	if md == "" {
		return nil, nil
	}
	md, err = s.trim(ctx, md)
	if err != nil {
		return nil, err
	}

	rec, err := s.LLM.ExtractRecord(ctx, rawURL, md)
	if err != nil {
		return nil, fmt.Errorf("extract record from %s: %w", rawURL, err)
	}
	if !rec.Valid() {
		return nil, nil
	}
	fillBlanks(rec, partial)
	return rec, nil
}

// markdown extracts the main content of html and converts it to Markdown.
// The whole document is converted when no extractor yields content.
func (s *Scraper) markdown(pageURL, html string) (string, error) {
	content, title := html, ""
	for _, ext := range s.Extractors {
		res, err := ext.Extract(pageURL, html)
		if err != nil {
			s.logger().Debug("content extraction failed", "url", pageURL, "err", err)
			continue
		}
		if strings.TrimSpace(res.ContentHTML) != "" {
			content, title = res.ContentHTML, res.Title
			break
		}
	}

	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	md, err := s.Converter.Convert(content)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", pageURL, err)
	}
	if title != "" && !strings.Contains(md, title) {
		md = "# " + title + "\n\n" + md
	}
	return md, nil
}

// trim shortens md to the configured budget.
func (s *Scraper) trim(ctx context.Context, md string) (string, error) {
	if s.Tokens != nil && s.MaxTokens > 0 {
		return TrimToTokens(ctx, s.Tokens, md, s.MaxTokens)
	}
	if s.MaxChars > 0 {
		return truncateRunes(md, s.MaxChars), nil
	}
	return md, nil
}

// TrimToTokens shortens text until counter reports at most limit tokens.
// Text is cut proportionally, so a few passes usually suffice.
func TrimToTokens(ctx context.Context, counter medprice.TokenCounter, text string, limit int) (string, error) {
	for range 5 {
		n, err := counter.CountTokens(ctx, text)
		if err != nil {
			return "", fmt.Errorf("count tokens: %w", err)
		}
		if n <= limit {
			return text, nil
		}
		keep := utf8.RuneCountInString(text) * limit / n * 9 / 10
		text = truncateRunes(text, keep)
	}
	return text, nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func fillBlanks(rec, from *medprice.Record) {
	if from == nil {
		return
	}
	if rec.Composition == "" {
		rec.Composition = from.Composition
	}
	if rec.Manufacturer == "" {
		rec.Manufacturer = from.Manufacturer
	}
	if rec.PackSize == "" {
		rec.PackSize = from.PackSize
	}
	if rec.InStock == nil {
		rec.InStock = from.InStock
	}
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

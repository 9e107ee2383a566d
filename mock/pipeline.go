package mock

import (
	"context"

	"github.com/fwojciec/medprice"
)

// Compile-time checks for the page pipeline mocks.
var (
	_ medprice.Fetcher      = (*Fetcher)(nil)
	_ medprice.Extractor    = (*Extractor)(nil)
	_ medprice.Converter    = (*Converter)(nil)
	_ medprice.TokenCounter = (*TokenCounter)(nil)
)

// Fetcher is a mock implementation of medprice.Fetcher.
// A nil CloseFn makes Close a no-op.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}

// Extractor is a mock implementation of medprice.Extractor.
type Extractor struct {
	ExtractFn func(pageURL, html string) (*medprice.ExtractResult, error)
}

func (e *Extractor) Extract(pageURL, html string) (*medprice.ExtractResult, error) {
	return e.ExtractFn(pageURL, html)
}

// Converter is a mock implementation of medprice.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}

// TokenCounter is a mock implementation of medprice.TokenCounter.
type TokenCounter struct {
	CountTokensFn func(ctx context.Context, text string) (int, error)
}

func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	return tc.CountTokensFn(ctx, text)
}

package mock

import (
	"context"

	"github.com/fwojciec/medprice"
)

var _ medprice.CatalogService = (*CatalogService)(nil)

// CatalogService is a mock implementation of medprice.CatalogService.
type CatalogService struct {
	MatchFn            func(ctx context.Context, query string, limit int) ([]*medprice.Match, error)
	UpsertEntryFn      func(ctx context.Context, c *medprice.EntryCandidate) (string, error)
	UpsertQuoteFn      func(ctx context.Context, q *medprice.PriceQuote) error
	FindEntryByIDFn    func(ctx context.Context, id string) (*medprice.Match, error)
	FindAlternativesFn func(ctx context.Context, entryID string, limit int) ([]*medprice.Match, error)
}

func (s *CatalogService) Match(ctx context.Context, query string, limit int) ([]*medprice.Match, error) {
	return s.MatchFn(ctx, query, limit)
}

func (s *CatalogService) UpsertEntry(ctx context.Context, c *medprice.EntryCandidate) (string, error) {
	return s.UpsertEntryFn(ctx, c)
}

func (s *CatalogService) UpsertQuote(ctx context.Context, q *medprice.PriceQuote) error {
	return s.UpsertQuoteFn(ctx, q)
}

func (s *CatalogService) FindEntryByID(ctx context.Context, id string) (*medprice.Match, error) {
	return s.FindEntryByIDFn(ctx, id)
}

func (s *CatalogService) FindAlternatives(ctx context.Context, entryID string, limit int) ([]*medprice.Match, error) {
	return s.FindAlternativesFn(ctx, entryID, limit)
}

package mock

import (
	"context"

	"github.com/fwojciec/medprice"
)

var _ medprice.SearchService = (*SearchService)(nil)

// SearchService is a mock implementation of medprice.SearchService.
type SearchService struct {
	SearchFn    func(ctx context.Context, query string) (*medprice.SearchResult, error)
	JobStatusFn func(ctx context.Context, id string) (*medprice.JobReport, error)
	EntryFn     func(ctx context.Context, id string) (*medprice.EntryDetail, error)
}

func (s *SearchService) Search(ctx context.Context, query string) (*medprice.SearchResult, error) {
	return s.SearchFn(ctx, query)
}

func (s *SearchService) JobStatus(ctx context.Context, id string) (*medprice.JobReport, error) {
	return s.JobStatusFn(ctx, id)
}

func (s *SearchService) Entry(ctx context.Context, id string) (*medprice.EntryDetail, error) {
	return s.EntryFn(ctx, id)
}

package enrich_test

import (
	"context"
	"testing"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/enrich"
	"github.com/fwojciec/medprice/mock"
	"github.com/fwojciec/medprice/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Search on an empty catalog schedules a job that fills the catalog; the next
// search sees the new matches and reuses the completed job.
func TestSearch_EndToEnd(t *testing.T) {
	t.Parallel()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	catalog := sqlite.NewCatalogService(db)
	jobs := sqlite.NewJobService(db)

	worker := &enrich.Worker{
		Jobs:    jobs,
		Catalog: catalog,
		Search: &mock.SearchProvider{
			SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
				return []*medprice.Candidate{
					{URL: "https://www.1mg.com/drugs/dolo-650", Record: &medprice.Record{Name: "Dolo 650", Composition: "Paracetamol (650mg)", Manufacturer: "Micro Labs", Price: 32}},
					{URL: "https://www.netmeds.com/dolo-650", Record: &medprice.Record{Name: "Dolo 650", Composition: "Paracetamol (650mg)", Manufacturer: "Micro Labs", Price: 30}},
					{URL: "https://pharmeasy.in/dolo-650"},
				}, nil
			},
		},
		Scraper: &mock.Scraper{
			ScrapeFn: func(context.Context, string) (*medprice.Record, error) {
				return nil, nil
			},
		},
	}

	executor := enrich.NewExecutor(context.Background(), 1, 4)
	executor.ErrorFunc = func(err error) { t.Errorf("task failed: %v", err) }
	svc := enrich.NewService(catalog, jobs, worker, executor)
	ctx := context.Background()

	first, err := svc.Search(ctx, "dolo 650")
	require.NoError(t, err)
	assert.Equal(t, medprice.SourceEnrichment, first.Source)
	assert.Empty(t, first.Matches)
	require.NotEmpty(t, first.JobID)

	require.NoError(t, executor.Close())

	report, err := svc.JobStatus(ctx, first.JobID)
	require.NoError(t, err)
	assert.Equal(t, medprice.JobCompleted, report.Status)
	assert.Equal(t, 2, report.ResultCount)

	second, err := svc.Search(ctx, "dolo 650")
	require.NoError(t, err)
	assert.Equal(t, medprice.SourceEnrichment, second.Source)
	assert.Equal(t, first.JobID, second.JobID)

	require.Len(t, second.Matches, 1)
	match := second.Matches[0]
	assert.Equal(t, "Dolo 650", match.Entry.Name)
	require.Len(t, match.Quotes, 2)
	assert.Equal(t, medprice.VendorNetmeds, match.Quotes[0].Vendor)
	assert.InDelta(t, 30, match.LowestPrice(), 0.001)
}

// A job still queued when the executor shuts down ends failed, so the next
// search after a restart schedules a fresh job instead of reusing it.
func TestSearch_ShutdownFailsQueuedJob(t *testing.T) {
	t.Parallel()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })

	catalog := sqlite.NewCatalogService(db)
	jobs := sqlite.NewJobService(db)
	worker := &enrich.Worker{
		Jobs:    jobs,
		Catalog: catalog,
		Search: &mock.SearchProvider{
			SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
				return []*medprice.Candidate{}, nil
			},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	executor := enrich.NewExecutor(ctx, 1, 4)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, executor.Submit(func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	svc := enrich.NewService(catalog, jobs, worker, executor)
	first, err := svc.Search(context.Background(), "Paracetamol")
	require.NoError(t, err)
	require.NotEmpty(t, first.JobID)

	cancel()
	close(release)
	require.NoError(t, executor.Close())

	report, err := svc.JobStatus(context.Background(), first.JobID)
	require.NoError(t, err)
	assert.Equal(t, medprice.JobFailed, report.Status)

	restarted := enrich.NewExecutor(context.Background(), 1, 4)
	restarted.ErrorFunc = func(err error) { t.Errorf("task failed: %v", err) }
	svc = enrich.NewService(catalog, jobs, worker, restarted)

	second, err := svc.Search(context.Background(), "Paracetamol")
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, second.JobID)

	require.NoError(t, restarted.Close())
	report, err = svc.JobStatus(context.Background(), second.JobID)
	require.NoError(t, err)
	assert.Equal(t, medprice.JobCompleted, report.Status)
}

package enrich_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/enrich"
	"github.com/fwojciec/medprice/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inlineSubmitter runs tasks synchronously so tests can observe their effects.
type inlineSubmitter struct {
	err   error
	tasks int
}

func (s *inlineSubmitter) Submit(task enrich.Task) error {
	if s.err != nil {
		return s.err
	}
	s.tasks++
	return task(context.Background())
}

func freshMatches(now time.Time, n int) []*medprice.Match {
	out := make([]*medprice.Match, n)
	for i := range out {
		out[i] = &medprice.Match{
			Entry:  &medprice.CatalogEntry{ID: "e", Name: "Dolo 650", UpdatedAt: now.Add(-time.Hour)},
			Quotes: []*medprice.PriceQuote{},
		}
	}
	return out
}

func TestService_Search(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fresh catalog answers without enrichment", func(t *testing.T) {
		t.Parallel()

		matches := freshMatches(now, 5)
		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(_ context.Context, query string, limit int) ([]*medprice.Match, error) {
					assert.Equal(t, "paracetamol", query)
					assert.Equal(t, medprice.DefaultMatchLimit, limit)
					return matches, nil
				},
			},
			&mock.JobService{},
			nil,
			&inlineSubmitter{},
		)
		svc.Now = func() time.Time { return now }

		result, err := svc.Search(context.Background(), " paracetamol ")
		require.NoError(t, err)

		assert.Equal(t, medprice.SourceCatalog, result.Source)
		assert.Len(t, result.Matches, 5)
		assert.Empty(t, result.JobID)
	})

	t.Run("empty catalog creates and schedules a job", func(t *testing.T) {
		t.Parallel()

		ledger := newJobLedger()
		jobs := ledger.service()
		jobs.FindReusableJobFn = func(context.Context, string, time.Duration) (*medprice.Job, error) {
			return nil, medprice.Errorf(medprice.ENOTFOUND, "no reusable job")
		}
		jobs.CreateJobFn = func(_ context.Context, query string) (*medprice.Job, error) {
			job := pendingJob("job-new", query)
			ledger.mu.Lock()
			ledger.jobs[job.ID] = job
			ledger.mu.Unlock()
			return job, nil
		}

		catalog := newRecordingCatalog()
		cs := catalog.service()
		cs.MatchFn = func(context.Context, string, int) ([]*medprice.Match, error) {
			return []*medprice.Match{}, nil
		}

		worker := &enrich.Worker{
			Jobs:    jobs,
			Catalog: cs,
			Search: &mock.SearchProvider{
				SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
					return []*medprice.Candidate{
						{URL: "https://www.1mg.com/a", Record: inline("Dolo 650", 32)},
						{URL: "https://www.netmeds.com/b", Record: inline("Crocin", 25)},
					}, nil
				},
			},
		}
		submitter := &inlineSubmitter{}
		svc := enrich.NewService(cs, jobs, worker, submitter)
		svc.Now = func() time.Time { return now }

		result, err := svc.Search(context.Background(), "paracetamol")
		require.NoError(t, err)

		assert.Equal(t, medprice.SourceEnrichment, result.Source)
		assert.Equal(t, "job-new", result.JobID)
		assert.Empty(t, result.Matches)
		assert.Equal(t, 1, submitter.tasks)

		job := ledger.get("job-new")
		assert.Equal(t, medprice.JobCompleted, job.Status)
		assert.Equal(t, 2, job.ResultCount)
	})

	t.Run("equivalent recent job is reused", func(t *testing.T) {
		t.Parallel()

		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(context.Context, string, int) ([]*medprice.Match, error) {
					return []*medprice.Match{}, nil
				},
			},
			&mock.JobService{
				FindReusableJobFn: func(_ context.Context, query string, cooldown time.Duration) (*medprice.Job, error) {
					assert.Equal(t, "paracetamol", query)
					assert.Equal(t, medprice.DefaultJobCooldown, cooldown)
					return &medprice.Job{ID: "job-old", Status: medprice.JobProcessing}, nil
				},
			},
			nil,
			&inlineSubmitter{},
		)

		result, err := svc.Search(context.Background(), "paracetamol")
		require.NoError(t, err)

		assert.Equal(t, medprice.SourceEnrichment, result.Source)
		assert.Equal(t, "job-old", result.JobID)
	})

	t.Run("one stale match forces enrichment", func(t *testing.T) {
		t.Parallel()

		matches := freshMatches(now, 5)
		matches[2].Entry.UpdatedAt = now.Add(-48 * time.Hour)

		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(context.Context, string, int) ([]*medprice.Match, error) {
					return matches, nil
				},
			},
			&mock.JobService{
				FindReusableJobFn: func(context.Context, string, time.Duration) (*medprice.Job, error) {
					return &medprice.Job{ID: "job-old"}, nil
				},
			},
			nil,
			&inlineSubmitter{},
		)
		svc.Now = func() time.Time { return now }

		result, err := svc.Search(context.Background(), "dolo")
		require.NoError(t, err)

		assert.Equal(t, medprice.SourceEnrichment, result.Source)
		assert.Len(t, result.Matches, 5)
	})

	t.Run("refused task fails the new job but still returns its id", func(t *testing.T) {
		t.Parallel()

		var failedID, failedMsg string
		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(context.Context, string, int) ([]*medprice.Match, error) {
					return []*medprice.Match{}, nil
				},
			},
			&mock.JobService{
				FindReusableJobFn: func(context.Context, string, time.Duration) (*medprice.Job, error) {
					return nil, medprice.Errorf(medprice.ENOTFOUND, "no reusable job")
				},
				CreateJobFn: func(_ context.Context, query string) (*medprice.Job, error) {
					return pendingJob("job-new", query), nil
				},
				MarkFailedFn: func(_ context.Context, id, message string) error {
					failedID, failedMsg = id, message
					return nil
				},
			},
			nil,
			&inlineSubmitter{err: medprice.Errorf(medprice.EUNAVAILABLE, "enrichment queue full")},
		)

		result, err := svc.Search(context.Background(), "dolo")
		require.NoError(t, err)

		assert.Equal(t, "job-new", result.JobID)
		assert.Equal(t, "job-new", failedID)
		assert.Equal(t, "enrichment queue full", failedMsg)
	})

	t.Run("catalog read failure surfaces", func(t *testing.T) {
		t.Parallel()

		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(context.Context, string, int) ([]*medprice.Match, error) {
					return nil, errors.New("disk I/O error")
				},
			},
			&mock.JobService{},
			nil,
			&inlineSubmitter{},
		)

		_, err := svc.Search(context.Background(), "dolo")
		assert.Equal(t, medprice.EINTERNAL, medprice.ErrorCode(err))
	})

	t.Run("ledger read failure surfaces", func(t *testing.T) {
		t.Parallel()

		svc := enrich.NewService(
			&mock.CatalogService{
				MatchFn: func(context.Context, string, int) ([]*medprice.Match, error) {
					return []*medprice.Match{}, nil
				},
			},
			&mock.JobService{
				FindReusableJobFn: func(context.Context, string, time.Duration) (*medprice.Job, error) {
					return nil, errors.New("database is locked")
				},
			},
			nil,
			&inlineSubmitter{},
		)

		_, err := svc.Search(context.Background(), "dolo")
		require.Error(t, err)
	})

	t.Run("blank query is invalid", func(t *testing.T) {
		t.Parallel()

		svc := enrich.NewService(&mock.CatalogService{}, &mock.JobService{}, nil, &inlineSubmitter{})

		_, err := svc.Search(context.Background(), "  ")
		assert.Equal(t, medprice.EINVALID, medprice.ErrorCode(err))
	})
}

func TestService_JobStatus(t *testing.T) {
	t.Parallel()

	ledger := newJobLedger(&medprice.Job{ID: "job-1", Status: medprice.JobFailed, Error: "provider returned 502"})
	svc := enrich.NewService(&mock.CatalogService{}, ledger.service(), nil, &inlineSubmitter{})

	report, err := svc.JobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, &medprice.JobReport{ID: "job-1", Status: medprice.JobFailed, Error: "provider returned 502"}, report)

	_, err = svc.JobStatus(context.Background(), "missing")
	assert.Equal(t, medprice.ENOTFOUND, medprice.ErrorCode(err))
}

func TestService_RunJob(t *testing.T) {
	t.Parallel()

	ledger := newJobLedger(pendingJob("job-1", "dolo"))
	worker := &enrich.Worker{
		Jobs:    ledger.service(),
		Catalog: newRecordingCatalog().service(),
		Search: &mock.SearchProvider{
			SearchFn: func(context.Context, string, int) ([]*medprice.Candidate, error) {
				return []*medprice.Candidate{{URL: "https://www.1mg.com/a", Record: inline("Dolo", 30)}}, nil
			},
		},
	}
	svc := enrich.NewService(&mock.CatalogService{}, ledger.service(), worker, &inlineSubmitter{})

	summary, err := svc.RunJob(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OK)

	_, err = svc.RunJob(context.Background(), "job-1")
	assert.Equal(t, medprice.ECONFLICT, medprice.ErrorCode(err))

	_, err = svc.RunJob(context.Background(), "missing")
	assert.Equal(t, medprice.ENOTFOUND, medprice.ErrorCode(err))
}

func TestService_Entry(t *testing.T) {
	t.Parallel()

	quotes := func(prices ...float64) []*medprice.PriceQuote {
		out := make([]*medprice.PriceQuote, 0, len(prices))
		for _, p := range prices {
			out = append(out, &medprice.PriceQuote{Price: p})
		}
		return out
	}

	catalog := &mock.CatalogService{
		FindEntryByIDFn: func(_ context.Context, id string) (*medprice.Match, error) {
			if id != "dolo" {
				return nil, medprice.Errorf(medprice.ENOTFOUND, "entry not found")
			}
			return &medprice.Match{
				Entry:  &medprice.CatalogEntry{ID: "dolo", Name: "Dolo 650", Composition: "Paracetamol (650mg)", PackSize: "strip of 15 tablets"},
				Quotes: quotes(32, 30),
			}, nil
		},
		FindAlternativesFn: func(_ context.Context, id string, limit int) ([]*medprice.Match, error) {
			assert.Equal(t, enrich.DefaultAlternativeLimit, limit)
			return []*medprice.Match{
				{Entry: &medprice.CatalogEntry{ID: "calpol", PackSize: "strip of 15"}, Quotes: quotes(15)},
				{Entry: &medprice.CatalogEntry{ID: "crocin", PackSize: "20 tablets"}, Quotes: quotes(40)},
				{Entry: &medprice.CatalogEntry{ID: "pacimol"}, Quotes: quotes(12)},
				{Entry: &medprice.CatalogEntry{ID: "unpriced"}, Quotes: []*medprice.PriceQuote{}},
			}, nil
		},
	}
	svc := enrich.NewService(catalog, &mock.JobService{}, nil, &inlineSubmitter{})

	detail, err := svc.Entry(context.Background(), "dolo")
	require.NoError(t, err)

	assert.Equal(t, "650mg", detail.Strength)
	assert.Equal(t, 15, detail.PackSize)
	assert.InDelta(t, 30, detail.LowestPrice, 0.001)
	assert.InDelta(t, 2, detail.PricePerUnit, 0.001)

	require.Len(t, detail.Alternatives, 3)
	ids := []string{detail.Alternatives[0].Entry.ID, detail.Alternatives[1].Entry.ID, detail.Alternatives[2].Entry.ID}
	assert.Equal(t, []string{"calpol", "pacimol", "crocin"}, ids)

	calpol := detail.Alternatives[0]
	assert.InDelta(t, 15, calpol.Savings, 0.001)
	assert.InDelta(t, 50, calpol.SavingsPercent, 0.001)

	crocin := detail.Alternatives[2]
	assert.Zero(t, crocin.Savings)
	assert.Zero(t, crocin.SavingsPercent)

	_, err = svc.Entry(context.Background(), "missing")
	assert.Equal(t, medprice.ENOTFOUND, medprice.ErrorCode(err))
}

package enrich_test

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/mock"
)

// jobLedger is an in-memory job ledger enforcing the status transitions.
type jobLedger struct {
	mu   sync.Mutex
	jobs map[string]*medprice.Job
}

func newJobLedger(jobs ...*medprice.Job) *jobLedger {
	l := &jobLedger{jobs: make(map[string]*medprice.Job)}
	for _, j := range jobs {
		l.jobs[j.ID] = j
	}
	return l
}

func (l *jobLedger) get(id string) medprice.Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.jobs[id]
}

func (l *jobLedger) move(id string, next medprice.JobStatus, apply func(*medprice.Job)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	job, ok := l.jobs[id]
	if !ok {
		return medprice.Errorf(medprice.ENOTFOUND, "job not found")
	}
	if !job.Status.CanTransition(next) {
		return medprice.Errorf(medprice.ECONFLICT, "job is %s", job.Status)
	}
	job.Status = next
	if apply != nil {
		apply(job)
	}
	return nil
}

func (l *jobLedger) service() *mock.JobService {
	return &mock.JobService{
		FindJobByIDFn: func(_ context.Context, id string) (*medprice.Job, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			job, ok := l.jobs[id]
			if !ok {
				return nil, medprice.Errorf(medprice.ENOTFOUND, "job not found")
			}
			cp := *job
			return &cp, nil
		},
		MarkProcessingFn: func(_ context.Context, id string) error {
			return l.move(id, medprice.JobProcessing, nil)
		},
		MarkCompletedFn: func(_ context.Context, id string, n int) error {
			return l.move(id, medprice.JobCompleted, func(j *medprice.Job) { j.ResultCount = n })
		},
		MarkFailedFn: func(_ context.Context, id string, message string) error {
			return l.move(id, medprice.JobFailed, func(j *medprice.Job) { j.Error = message })
		},
	}
}

func pendingJob(id, query string) *medprice.Job {
	now := time.Now().UTC()
	return &medprice.Job{ID: id, Query: query, Status: medprice.JobPending, CreatedAt: now, UpdatedAt: now}
}

// recordingCatalog stores upserts in memory keyed like the real catalog.
type recordingCatalog struct {
	mu      sync.Mutex
	entries map[string]string
	quotes  map[string]*medprice.PriceQuote
}

func newRecordingCatalog() *recordingCatalog {
	return &recordingCatalog{
		entries: make(map[string]string),
		quotes:  make(map[string]*medprice.PriceQuote),
	}
}

func (c *recordingCatalog) service() *mock.CatalogService {
	return &mock.CatalogService{
		UpsertEntryFn: func(_ context.Context, e *medprice.EntryCandidate) (string, error) {
			if err := e.Validate(); err != nil {
				return "", err
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			key := e.Name + "|" + e.Manufacturer
			if id, ok := c.entries[key]; ok {
				return id, nil
			}
			id := "entry-" + key
			c.entries[key] = id
			return id, nil
		},
		UpsertQuoteFn: func(_ context.Context, q *medprice.PriceQuote) error {
			if err := q.Validate(); err != nil {
				return err
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			c.quotes[q.EntryID+"|"+string(q.Vendor)] = q
			return nil
		},
	}
}

func (c *recordingCatalog) quoteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.quotes)
}

func inline(name string, price float64) *medprice.Record {
	return &medprice.Record{Name: name, Price: price}
}

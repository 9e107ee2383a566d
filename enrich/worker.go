// Package enrich runs enrichment jobs: external search, record extraction and
// catalog merge, plus the caller-facing search flow that schedules them.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/bloom"
	"golang.org/x/sync/errgroup"
)

// Worker defaults.
const (
	DefaultConcurrency   = 3
	DefaultQueryTemplate = "%s medicine price India"
	DefaultTimeout       = 10 * time.Minute

	// finalizeTimeout bounds the ledger write that records a job's outcome.
	finalizeTimeout = 10 * time.Second
)

// OutcomeKind tags the result of processing one candidate.
type OutcomeKind string

// Candidate outcomes.
const (
	OutcomeOK      OutcomeKind = "ok"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeErrored OutcomeKind = "errored"
)

// Outcome is the result of processing one candidate document.
type Outcome struct {
	Kind    OutcomeKind     `json:"kind"`
	URL     string          `json:"url"`
	EntryID string          `json:"entryId,omitempty"`
	Vendor  medprice.Vendor `json:"vendor,omitempty"`
	Price   float64         `json:"price,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Summary aggregates the outcomes of one job run.
type Summary struct {
	JobID      string    `json:"jobId"`
	Query      string    `json:"query"`
	Candidates int       `json:"candidates"`
	OK         int       `json:"ok"`
	Skipped    int       `json:"skipped"`
	Errored    int       `json:"errored"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case OutcomeOK:
		s.OK++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeErrored:
		s.Errored++
	}
}

// ProgressFunc receives each candidate outcome as it is produced, along with
// how many candidates are done out of the total. It may be called concurrently.
type ProgressFunc func(o Outcome, completed, total int)

// Worker executes enrichment jobs.
type Worker struct {
	Jobs    medprice.JobService
	Catalog medprice.CatalogService
	Search  medprice.SearchProvider

	// Scraper is the fallback for candidates without a usable inline record.
	// May be nil, in which case such candidates are skipped.
	Scraper medprice.Scraper

	Concurrency   int
	SearchLimit   int
	QueryTemplate string

	// Timeout bounds a whole run. Zero means DefaultTimeout; negative disables it.
	Timeout time.Duration

	Logger   *slog.Logger
	Progress ProgressFunc
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}

// Run executes the job: it marks the job processing, searches once, merges
// every valid record found into the catalog and marks the job completed with
// the number of records stored. A search failure or an exceeded timeout fails
// the job. Failures of single candidates are recorded in the summary and
// never abort the others.
func (w *Worker) Run(ctx context.Context, jobID, query string) (*Summary, error) {
	timeout := w.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	log := w.logger().With("job", jobID, "query", query)
	summary := &Summary{JobID: jobID, Query: query, Outcomes: []Outcome{}}

	if err := w.Jobs.MarkProcessing(ctx, jobID); err != nil {
		// Conflicts and unknown jobs are left alone. Any other failure must
		// not leave the job pending.
		if code := medprice.ErrorCode(err); code != medprice.ECONFLICT && code != medprice.ENOTFOUND {
			w.fail(ctx, log, jobID, err)
		}
		return summary, fmt.Errorf("mark processing: %w", err)
	}

	template := w.QueryTemplate
	if template == "" {
		template = DefaultQueryTemplate
	}
	limit := w.SearchLimit
	if limit <= 0 {
		limit = medprice.DefaultSearchLimit
	}

	candidates, err := w.Search.Search(ctx, fmt.Sprintf(template, query), limit)
	if err != nil {
		w.fail(ctx, log, jobID, err)
		return summary, fmt.Errorf("search: %w", err)
	}
	summary.Candidates = len(candidates)

	outcomes := w.processAll(ctx, candidates)
	for _, o := range outcomes {
		summary.add(o)
	}

	if err := ctx.Err(); err != nil {
		w.fail(ctx, log, jobID, err)
		return summary, err
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if err := w.Jobs.MarkCompleted(fctx, jobID, summary.OK); err != nil {
		return summary, fmt.Errorf("mark completed: %w", err)
	}

	log.Info("job completed", "candidates", summary.Candidates, "ok", summary.OK,
		"skipped", summary.Skipped, "errored", summary.Errored)
	return summary, nil
}

// processAll handles candidates concurrently and returns their outcomes in
// candidate order. Duplicate URLs are skipped.
func (w *Worker) processAll(ctx context.Context, candidates []*medprice.Candidate) []Outcome {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	outcomes := make([]Outcome, len(candidates))
	seen := bloom.NewFilter(uint(len(candidates))+1, 0.001)
	total := len(candidates)
	var completed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, c := range candidates {
		if c == nil || c.URL == "" {
			outcomes[i] = Outcome{Kind: OutcomeSkipped, Reason: "candidate without url"}
			w.report(outcomes[i], &completed, total)
			continue
		}
		if seen.Seen(c.URL) {
			outcomes[i] = Outcome{Kind: OutcomeSkipped, URL: c.URL, Reason: "duplicate url"}
			w.report(outcomes[i], &completed, total)
			continue
		}
		g.Go(func() error {
			outcomes[i] = w.process(gctx, c)
			w.report(outcomes[i], &completed, total)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (w *Worker) report(o Outcome, completed *atomic.Int64, total int) {
	n := int(completed.Add(1))
	if w.Progress != nil {
		w.Progress(o, n, total)
	}
}

// process turns one candidate into at most one stored quote.
func (w *Worker) process(ctx context.Context, c *medprice.Candidate) Outcome {
	log := w.logger().With("url", c.URL)

	rec := c.Record
	if !rec.Valid() {
		if w.Scraper == nil {
			return Outcome{Kind: OutcomeSkipped, URL: c.URL, Reason: "no inline record"}
		}
		scraped, err := w.Scraper.Scrape(ctx, c.URL)
		if err != nil {
			log.Warn("scrape failed", "err", err)
			return Outcome{Kind: OutcomeErrored, URL: c.URL, Reason: err.Error()}
		}
		if !scraped.Valid() {
			return Outcome{Kind: OutcomeSkipped, URL: c.URL, Reason: "no record found"}
		}
		rec = scraped
	}

	vendor := medprice.ClassifyVendor(c.URL)

	entryID, err := w.Catalog.UpsertEntry(ctx, rec.Entry())
	if err != nil {
		log.Error("store entry failed", "record", rec.String(), "err", err)
		return Outcome{Kind: OutcomeErrored, URL: c.URL, Reason: err.Error()}
	}

	if err := w.Catalog.UpsertQuote(ctx, &medprice.PriceQuote{
		EntryID:    entryID,
		Vendor:     vendor,
		Price:      rec.Price,
		URL:        c.URL,
		InStock:    rec.Available(),
		ObservedAt: time.Now().UTC(),
	}); err != nil {
		log.Error("store quote failed", "entry", entryID, "err", err)
		return Outcome{Kind: OutcomeErrored, URL: c.URL, EntryID: entryID, Reason: err.Error()}
	}

	return Outcome{Kind: OutcomeOK, URL: c.URL, EntryID: entryID, Vendor: vendor, Price: rec.Price}
}

// fail records cause on the job. The write survives ctx's cancellation.
func (w *Worker) fail(ctx context.Context, log *slog.Logger, jobID string, cause error) {
	fctx, cancel := finalizeContext(ctx)
	defer cancel()

	log.Error("job failed", "err", cause)
	if err := w.Jobs.MarkFailed(fctx, jobID, failureMessage(cause)); err != nil {
		log.Error("mark failed", "err", err)
	}
}

func failureMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "enrichment timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "enrichment cancelled"
	}
	if code := medprice.ErrorCode(err); code != medprice.EINTERNAL {
		return medprice.ErrorMessage(err)
	}
	return err.Error()
}

func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

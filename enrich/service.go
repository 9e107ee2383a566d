package enrich

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
)

// DefaultAlternativeLimit is the number of alternatives returned with an entry.
const DefaultAlternativeLimit = 10

// Submitter schedules background tasks without blocking.
type Submitter interface {
	Submit(task Task) error
}

// Compile-time interface verification.
var (
	_ medprice.SearchService = (*Service)(nil)
	_ Submitter              = (*Executor)(nil)
)

// Service is the caller-facing surface: catalog search with transparent
// enrichment, job progress and entry detail.
type Service struct {
	Catalog  medprice.CatalogService
	Jobs     medprice.JobService
	Worker   *Worker
	Executor Submitter

	Policy     medprice.FreshnessPolicy
	Cooldown   time.Duration
	MatchLimit int
	Logger     *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewService returns a Service with the default freshness policy and cooldown.
func NewService(catalog medprice.CatalogService, jobs medprice.JobService, worker *Worker, executor Submitter) *Service {
	return &Service{
		Catalog:    catalog,
		Jobs:       jobs,
		Worker:     worker,
		Executor:   executor,
		Policy:     medprice.DefaultFreshnessPolicy(),
		Cooldown:   medprice.DefaultJobCooldown,
		MatchLimit: medprice.DefaultMatchLimit,
		Now:        time.Now,
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Search answers query from the catalog. When the matches are too few or any
// is stale, it attaches an enrichment job: an equivalent recent job if one
// exists, otherwise a new job scheduled in the background. It never waits
// for enrichment.
func (s *Service) Search(ctx context.Context, query string) (*medprice.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "query required")
	}

	matches, err := s.Catalog.Match(ctx, query, s.MatchLimit)
	if err != nil {
		return nil, err
	}

	if s.Policy.IsSufficient(matches, s.now()) {
		return &medprice.SearchResult{Source: medprice.SourceCatalog, Matches: matches}, nil
	}

	job, err := s.Jobs.FindReusableJob(ctx, query, s.Cooldown)
	switch {
	case err == nil:
		return &medprice.SearchResult{Source: medprice.SourceEnrichment, Matches: matches, JobID: job.ID}, nil
	case medprice.ErrorCode(err) != medprice.ENOTFOUND:
		return nil, err
	}

	job, err = s.Jobs.CreateJob(ctx, query)
	if err != nil {
		return nil, err
	}

	log := s.logger().With("job", job.ID, "query", query)
	id := job.ID
	if err := s.Executor.Submit(func(ctx context.Context) error {
		_, err := s.Worker.Run(ctx, id, query)
		return err
	}); err != nil {
		log.Warn("enrichment not scheduled", "err", err)
		if ferr := s.Jobs.MarkFailed(ctx, id, medprice.ErrorMessage(err)); ferr != nil {
			log.Error("mark failed", "err", ferr)
		}
	} else {
		log.Info("enrichment scheduled", "matches", len(matches))
	}

	return &medprice.SearchResult{Source: medprice.SourceEnrichment, Matches: matches, JobID: id}, nil
}

// JobStatus reports the progress of a job.
func (s *Service) JobStatus(ctx context.Context, id string) (*medprice.JobReport, error) {
	job, err := s.Jobs.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return job.Report(), nil
}

// ListJobs lists jobs matching filter, newest first.
func (s *Service) ListJobs(ctx context.Context, filter medprice.JobFilter) ([]*medprice.Job, error) {
	return s.Jobs.FindJobs(ctx, filter)
}

// RunJob runs an existing pending job synchronously.
// Returns ENOTFOUND for unknown jobs and ECONFLICT for jobs that already started.
func (s *Service) RunJob(ctx context.Context, id string) (*Summary, error) {
	job, err := s.Jobs.FindJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Worker.Run(ctx, job.ID, job.Query)
}

// Entry returns an entry with its quotes, unit pricing and alternatives that
// share its base salt, cheapest per unit first. Alternatives without quotes
// are omitted.
func (s *Service) Entry(ctx context.Context, id string) (*medprice.EntryDetail, error) {
	m, err := s.Catalog.FindEntryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	alts, err := s.Catalog.FindAlternatives(ctx, id, DefaultAlternativeLimit)
	if err != nil {
		return nil, err
	}

	packSize := medprice.ParsePackSize(m.Entry.PackSize)
	lowest := m.LowestPrice()

	detail := &medprice.EntryDetail{
		Entry:        m.Entry,
		Quotes:       m.Quotes,
		Strength:     medprice.ParseStrength(m.Entry.Composition),
		PackSize:     packSize,
		LowestPrice:  lowest,
		PricePerUnit: lowest / float64(packSize),
		Alternatives: []*medprice.Alternative{},
	}

	for _, alt := range alts {
		if len(alt.Quotes) == 0 {
			continue
		}
		altPack := medprice.ParsePackSize(alt.Entry.PackSize)
		altLowest := alt.LowestPrice()

		a := &medprice.Alternative{
			Entry:        alt.Entry,
			Quotes:       alt.Quotes,
			Strength:     medprice.ParseStrength(alt.Entry.Composition),
			PackSize:     altPack,
			LowestPrice:  altLowest,
			PricePerUnit: altLowest / float64(altPack),
		}
		if lowest > 0 && altLowest < lowest {
			a.Savings = lowest - altLowest
			a.SavingsPercent = a.Savings / lowest * 100
		}
		detail.Alternatives = append(detail.Alternatives, a)
	}

	sort.SliceStable(detail.Alternatives, func(i, j int) bool {
		return detail.Alternatives[i].PricePerUnit < detail.Alternatives[j].PricePerUnit
	})

	return detail, nil
}

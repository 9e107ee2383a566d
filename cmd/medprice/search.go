package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fwojciec/medprice"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	result, err := deps.Search.Search(deps.Ctx, c.Query)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
		return err
	}

	if c.Wait && result.JobID != "" {
		fmt.Fprintf(deps.Stderr, "Enriching catalog (job %s)...\n", result.JobID)
		report, err := waitForJob(deps.Ctx, deps.Search, result.JobID, c.Interval, c.Timeout)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
			return err
		}
		if report.Status == medprice.JobFailed {
			fmt.Fprintf(deps.Stderr, "warning: enrichment failed: %s\n", report.Error)
		}

		result, err = deps.Search.Search(deps.Ctx, c.Query)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
			return err
		}
	}

	if len(result.Matches) == 0 {
		fmt.Fprintf(deps.Stdout, "No matches for %q.\n", c.Query)
	} else {
		printMatches(deps.Stdout, result.Matches)
	}

	if !c.Wait && result.JobID != "" {
		fmt.Fprintf(deps.Stdout, "\nEnrichment job %s is running. Check progress with 'medprice job %s'.\n", result.JobID, result.JobID)
	}
	return nil
}

// waitForJob polls the job until it reaches a terminal status.
func waitForJob(ctx context.Context, search medprice.SearchService, id string, interval, timeout time.Duration) (*medprice.JobReport, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := search.JobStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		if report.Status.Terminal() {
			return report, nil
		}

		select {
		case <-ctx.Done():
			return nil, medprice.Errorf(medprice.EUNAVAILABLE, "timed out waiting for job %s", id)
		case <-ticker.C:
		}
	}
}

package main

import (
	"fmt"

	"github.com/fwojciec/medprice"
)

// Run executes the job command.
func (c *JobCmd) Run(deps *Dependencies) error {
	report, err := deps.Search.JobStatus(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
		return err
	}
	printJob(deps.Stdout, report)
	return nil
}

// Run executes the jobs command.
func (c *JobsCmd) Run(deps *Dependencies) error {
	if c.Limit <= 0 {
		return medprice.Errorf(medprice.EINVALID, "limit must be positive")
	}
	filter := medprice.JobFilter{Limit: c.Limit}
	if c.Status != "" {
		status := medprice.JobStatus(c.Status)
		if !status.Valid() {
			fmt.Fprintf(deps.Stderr, "error: invalid status %q\n", c.Status)
			return medprice.Errorf(medprice.EINVALID, "invalid status %q", c.Status)
		}
		filter.Status = &status
	}

	jobs, err := deps.Jobs.FindJobs(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(deps.Stdout, "No jobs found.")
		return nil
	}

	for _, j := range jobs {
		printJob(deps.Stdout, j.Report())
	}
	return nil
}

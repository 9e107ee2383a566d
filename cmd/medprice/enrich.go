package main

import (
	"fmt"

	"github.com/fwojciec/medprice"
)

// Run executes the enrich command.
func (c *EnrichCmd) Run(deps *Dependencies) error {
	summary, err := deps.Runner.RunJob(deps.Ctx, c.JobID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Job %s (%q): %d candidates, %d stored, %d skipped, %d errored\n",
		summary.JobID, summary.Query, summary.Candidates, summary.OK, summary.Skipped, summary.Errored)
	for _, o := range summary.Outcomes {
		switch {
		case o.EntryID != "":
			fmt.Fprintf(deps.Stdout, "  %-8s %s %s %s\n", o.Kind, o.Vendor, formatPrice(o.Price), o.URL)
		case o.Reason != "":
			fmt.Fprintf(deps.Stdout, "  %-8s %s (%s)\n", o.Kind, o.URL, o.Reason)
		default:
			fmt.Fprintf(deps.Stdout, "  %-8s %s\n", o.Kind, o.URL)
		}
	}
	return nil
}

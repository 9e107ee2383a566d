package main

import (
	"fmt"

	"github.com/fwojciec/medprice"
)

// Run executes the entry command.
func (c *EntryCmd) Run(deps *Dependencies) error {
	detail, err := deps.Search.Entry(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", medprice.ErrorMessage(err))
		return err
	}

	printEntry(deps.Stdout, detail.Entry)
	printQuotes(deps.Stdout, detail.Quotes)
	if detail.PackSize > 0 && detail.PricePerUnit > 0 {
		fmt.Fprintf(deps.Stdout, "  Per unit:     %s\n", formatPrice(detail.PricePerUnit))
	}

	if len(detail.Alternatives) == 0 {
		return nil
	}

	fmt.Fprintf(deps.Stdout, "\nAlternatives (%d):\n", len(detail.Alternatives))
	for _, a := range detail.Alternatives {
		fmt.Fprintf(deps.Stdout, "  %s  %s  %s", a.Entry.ID, a.Entry.Name, formatPrice(a.LowestPrice))
		if a.PricePerUnit > 0 {
			fmt.Fprintf(deps.Stdout, "  (%s/unit", formatPrice(a.PricePerUnit))
			if a.SavingsPercent > 0 {
				fmt.Fprintf(deps.Stdout, ", %.0f%% cheaper", a.SavingsPercent)
			}
			fmt.Fprint(deps.Stdout, ")")
		}
		fmt.Fprintln(deps.Stdout)
	}
	return nil
}

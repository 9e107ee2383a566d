package main

import (
	"fmt"
	"io"

	"github.com/fwojciec/medprice"
)

func printMatches(w io.Writer, matches []*medprice.Match) {
	for i, m := range matches {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printEntry(w, m.Entry)
		printQuotes(w, m.Quotes)
	}
}

func printEntry(w io.Writer, e *medprice.CatalogEntry) {
	fmt.Fprintf(w, "%s  %s\n", e.ID, e.Name)
	if e.Composition != "" {
		fmt.Fprintf(w, "  Composition:  %s\n", e.Composition)
	}
	if e.Manufacturer != "" {
		fmt.Fprintf(w, "  Manufacturer: %s\n", e.Manufacturer)
	}
	if e.PackSize != "" {
		fmt.Fprintf(w, "  Pack:         %s\n", e.PackSize)
	}
}

func printQuotes(w io.Writer, quotes []*medprice.PriceQuote) {
	for _, q := range quotes {
		stock := ""
		if !q.InStock {
			stock = "  (out of stock)"
		}
		fmt.Fprintf(w, "  %-10s %s%s\n             %s\n", q.Vendor, formatPrice(q.Price), stock, q.URL)
	}
}

func printJob(w io.Writer, r *medprice.JobReport) {
	fmt.Fprintf(w, "%s  %s  %q  results=%d\n", r.ID, r.Status, r.Query, r.ResultCount)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
}

func formatPrice(p float64) string {
	return fmt.Sprintf("₹%.2f", p)
}

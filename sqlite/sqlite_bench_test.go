package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/fwojciec/medprice"
	"github.com/fwojciec/medprice/sqlite"
	"github.com/stretchr/testify/require"
)

// BenchmarkUpsert simulates an enrichment run writing entries and quotes.
func BenchmarkUpsert(b *testing.B) {
	db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, db.Open())
	defer db.Close()

	ctx := context.Background()
	svc := sqlite.NewCatalogService(db)
	vendors := medprice.Vendors()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id, err := svc.UpsertEntry(ctx, &medprice.EntryCandidate{
			Name:        fmt.Sprintf("Medicine %d", i%500),
			Composition: "Paracetamol (500mg)",
		})
		if err != nil {
			b.Fatal(err)
		}
		if err := svc.UpsertQuote(ctx, &medprice.PriceQuote{
			EntryID: id,
			Vendor:  vendors[i%len(vendors)],
			Price:   float64(10 + i%90),
			URL:     fmt.Sprintf("https://example.com/p/%d", i),
			InStock: true,
		}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkMatch measures fuzzy lookup over a populated catalog, where the
// similarity function runs for every row.
func BenchmarkMatch(b *testing.B) {
	for _, size := range []int{100, 1000} {
		b.Run(fmt.Sprintf("entries_%d", size), func(b *testing.B) {
			db := sqlite.NewDB(filepath.Join(b.TempDir(), "bench.db"))
			require.NoError(b, db.Open())
			defer db.Close()

			ctx := context.Background()
			svc := sqlite.NewCatalogService(db)
			for i := 0; i < size; i++ {
				_, err := svc.UpsertEntry(ctx, &medprice.EntryCandidate{
					Name:        fmt.Sprintf("Brand %d Tablet", i),
					Composition: fmt.Sprintf("Salt%d (%dmg)", i%50, 100+i%10),
				})
				require.NoError(b, err)
			}

			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := svc.Match(ctx, "brand 42", 0); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

package medprice

import "context"

// Source tells a caller where search matches came from.
type Source string

// Search sources. SourceEnrichment means a job id accompanies the matches.
const (
	SourceCatalog    Source = "catalog"
	SourceEnrichment Source = "enrichment"
)

// SearchResult is the caller-facing answer to a query.
type SearchResult struct {
	Source  Source   `json:"source"`
	Matches []*Match `json:"matches"`
	JobID   string   `json:"jobId,omitempty"`
}

// Alternative is another entry sharing the base salt of a viewed entry.
type Alternative struct {
	Entry          *CatalogEntry `json:"entry"`
	Quotes         []*PriceQuote `json:"quotes"`
	Strength       string        `json:"strength,omitempty"`
	PackSize       int           `json:"packSize"`
	LowestPrice    float64       `json:"lowestPrice"`
	PricePerUnit   float64       `json:"pricePerUnit"`
	Savings        float64       `json:"savings"`
	SavingsPercent float64       `json:"savingsPercent"`
}

// EntryDetail is an entry with its quotes, unit pricing and alternatives.
type EntryDetail struct {
	Entry        *CatalogEntry  `json:"entry"`
	Quotes       []*PriceQuote  `json:"quotes"`
	Strength     string         `json:"strength,omitempty"`
	PackSize     int            `json:"packSize"`
	LowestPrice  float64        `json:"lowestPrice"`
	PricePerUnit float64        `json:"pricePerUnit"`
	Alternatives []*Alternative `json:"alternatives"`
}

// SearchService is the caller-facing surface of the system.
type SearchService interface {
	// Search answers query from the catalog and starts an enrichment job
	// in the background when the answer is insufficient.
	Search(ctx context.Context, query string) (*SearchResult, error)

	// JobStatus reports the progress of an enrichment job.
	// Returns ENOTFOUND for unknown jobs.
	JobStatus(ctx context.Context, id string) (*JobReport, error)

	// Entry returns an entry with its quotes and cheaper alternatives.
	// Returns ENOTFOUND for unknown entries.
	Entry(ctx context.Context, id string) (*EntryDetail, error)
}

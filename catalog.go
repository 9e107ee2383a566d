package medprice

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultMatchLimit is the number of matches returned when no limit is given.
const DefaultMatchLimit = 10

// SimilarityThreshold is the trigram similarity above which a catalog field
// matches a query even when the query is not a substring of it.
const SimilarityThreshold = 0.3

// CatalogEntry represents a product known to the catalog.
// (Name, Manufacturer) identifies an entry; an unknown manufacturer is "".
type CatalogEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Composition  string    `json:"composition,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	PackSize     string    `json:"packSize,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PriceQuote is the latest observed price of an entry at one vendor.
type PriceQuote struct {
	EntryID     string    `json:"entryId"`
	Vendor      Vendor    `json:"vendor"`
	Price       float64   `json:"price"`
	URL         string    `json:"url"`
	InStock     bool      `json:"inStock"`
	ObservedAt  time.Time `json:"observedAt"`
	Fingerprint string    `json:"fingerprint"`
}

// Validate returns an error if the quote contains invalid fields.
func (q *PriceQuote) Validate() error {
	if q.EntryID == "" {
		return Errorf(EINVALID, "quote entry ID required")
	}
	if q.Vendor == "" {
		return Errorf(EINVALID, "quote vendor required")
	}
	if q.Price <= 0 {
		return Errorf(EINVALID, "quote price must be positive")
	}
	return nil
}

// Hash computes the xxHash fingerprint of the observed quote state:
// price, URL and stock flag. Equal hashes mean an upsert changed nothing
// but the observation time.
func (q *PriceQuote) Hash() string {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.FormatFloat(q.Price, 'f', -1, 64))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(q.URL)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.FormatBool(q.InStock))

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, h.Sum64())
	return hex.EncodeToString(b)
}

// EntryCandidate is the data needed to insert or refresh a catalog entry.
type EntryCandidate struct {
	Name         string
	Composition  string
	Manufacturer string
	PackSize     string
}

// Validate returns an error if the candidate contains invalid fields.
func (c *EntryCandidate) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Errorf(EINVALID, "entry name required")
	}
	return nil
}

// Match is a catalog entry joined with its price quotes.
// Quotes is empty, never nil, for entries without quotes.
type Match struct {
	Entry  *CatalogEntry `json:"entry"`
	Quotes []*PriceQuote `json:"quotes"`
	Score  float64       `json:"score"`
}

// LowestPrice returns the lowest quoted price, or 0 if there are no quotes.
func (m *Match) LowestPrice() float64 {
	var lowest float64
	for _, q := range m.Quotes {
		if lowest == 0 || q.Price < lowest {
			lowest = q.Price
		}
	}
	return lowest
}

// Matcher performs fuzzy lookup over the catalog.
type Matcher interface {
	// Match returns entries whose name or composition contains the query
	// (case-insensitive) or is trigram-similar to it above SimilarityThreshold,
	// ranked by similarity descending and truncated to limit.
	// A limit <= 0 means DefaultMatchLimit.
	Match(ctx context.Context, query string, limit int) ([]*Match, error)
}

// CatalogService represents a service for managing catalog entries and quotes.
type CatalogService interface {
	Matcher

	// UpsertEntry inserts an entry by (name, manufacturer) or, on conflict,
	// refreshes its composition, pack size and updated timestamp.
	// Returns the stable entry ID.
	UpsertEntry(ctx context.Context, c *EntryCandidate) (string, error)

	// UpsertQuote inserts a quote by (entry ID, vendor) or overwrites
	// price, URL, stock flag and observation time on conflict.
	UpsertQuote(ctx context.Context, q *PriceQuote) error

	// FindEntryByID retrieves an entry with its quotes.
	// Returns ENOTFOUND if the entry does not exist.
	FindEntryByID(ctx context.Context, id string) (*Match, error)

	// FindAlternatives returns other entries sharing the base salt of the
	// given entry's composition. Returns ENOTFOUND if the entry does not exist.
	FindAlternatives(ctx context.Context, entryID string, limit int) ([]*Match, error)
}

var (
	packSizeRe     = regexp.MustCompile(`(\d+)`)
	saltParensRe   = regexp.MustCompile(`\(.*?\)`)
	saltDosageRe   = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(?:mg|mcg|g|ml|iu)\b`)
	saltSeparators = regexp.MustCompile(`[/,+]`)
	strengthRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mg|mcg|g|ml|iu)\b`)
)

// DefaultPackSize is assumed when an entry's pack size cannot be parsed.
const DefaultPackSize = 10

// ParsePackSize returns the first integer in a pack size description,
// e.g. 15 for "strip of 15 tablets". Returns DefaultPackSize otherwise.
func ParsePackSize(s string) int {
	m := packSizeRe.FindString(s)
	if m == "" {
		return DefaultPackSize
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultPackSize
	}
	return n
}

// BaseSalt returns the leading active ingredient of a composition,
// e.g. "Paracetamol" for "Paracetamol (650mg)". Returns "" if none.
func BaseSalt(composition string) string {
	s := saltParensRe.ReplaceAllString(composition, " ")
	s = saltDosageRe.ReplaceAllString(s, " ")
	s = saltSeparators.ReplaceAllString(s, " ")
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// ParseStrength returns the first dosage in a composition with its spacing
// removed, e.g. "650mg" for "Paracetamol (650 mg)". Returns "" if none.
func ParseStrength(composition string) string {
	m := strengthRe.FindStringSubmatch(composition)
	if m == nil {
		return ""
	}
	return m[1] + m[2]
}

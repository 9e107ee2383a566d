package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/google/uuid"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var _ medprice.CatalogService = (*CatalogService)(nil)

// CatalogService implements medprice.CatalogService using SQLite.
type CatalogService struct {
	db *DB
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(db *DB) *CatalogService {
	return &CatalogService{db: db}
}

const entryColumns = "id, name, composition, manufacturer, pack_size, created_at, updated_at"

// UpsertEntry inserts an entry or refreshes the existing one with the same
// name and manufacturer. Composition and pack size are only overwritten when
// the candidate carries a value.
func (s *CatalogService) UpsertEntry(ctx context.Context, c *medprice.EntryCandidate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	now := formatTime(time.Now())

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (id, name, composition, manufacturer, pack_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, manufacturer) DO UPDATE SET
			composition = CASE WHEN excluded.composition != '' THEN excluded.composition ELSE entries.composition END,
			pack_size = CASE WHEN excluded.pack_size != '' THEN excluded.pack_size ELSE entries.pack_size END,
			updated_at = excluded.updated_at
		RETURNING id
	`, uuid.New().String(), strings.TrimSpace(c.Name), strings.TrimSpace(c.Composition),
		strings.TrimSpace(c.Manufacturer), strings.TrimSpace(c.PackSize), now, now).Scan(&id)
	if err != nil {
		return "", err
	}

	return id, nil
}

// UpsertQuote inserts a quote or overwrites the existing quote of the same
// entry and vendor.
func (s *CatalogService) UpsertQuote(ctx context.Context, q *medprice.PriceQuote) error {
	if err := q.Validate(); err != nil {
		return err
	}

	if q.ObservedAt.IsZero() {
		q.ObservedAt = time.Now().UTC()
	}
	q.Fingerprint = q.Hash()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotes (entry_id, vendor, price, url, in_stock, observed_at, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entry_id, vendor) DO UPDATE SET
			price = excluded.price,
			url = excluded.url,
			in_stock = excluded.in_stock,
			observed_at = excluded.observed_at,
			fingerprint = excluded.fingerprint
	`, q.EntryID, string(q.Vendor), q.Price, q.URL, q.InStock, formatTime(q.ObservedAt), q.Fingerprint)
	if err != nil {
		if errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
			return medprice.Errorf(medprice.ENOTFOUND, "entry not found")
		}
		return err
	}

	return nil
}

// Match returns entries matching query by containment or trigram similarity.
func (s *CatalogService) Match(ctx context.Context, query string, limit int) ([]*medprice.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, medprice.Errorf(medprice.EINVALID, "query required")
	}
	if limit <= 0 {
		limit = medprice.DefaultMatchLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`,
			MAX(similarity(name, ?1), similarity(composition, ?1)) AS score
		FROM entries
		WHERE instr(lower(name), lower(?1)) > 0
			OR instr(lower(composition), lower(?1)) > 0
			OR similarity(name, ?1) > ?2
			OR similarity(composition, ?1) > ?2
		ORDER BY score DESC, name ASC
		LIMIT ?3
	`, query, medprice.SimilarityThreshold, limit)
	if err != nil {
		return nil, err
	}

	matches, err := scanMatches(rows, true)
	if err != nil {
		return nil, err
	}

	if err := s.attachQuotes(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// FindEntryByID retrieves an entry with its quotes.
func (s *CatalogService) FindEntryByID(ctx context.Context, id string) (*medprice.Match, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, medprice.Errorf(medprice.ENOTFOUND, "entry not found")
	}
	if err != nil {
		return nil, err
	}

	matches := []*medprice.Match{{Entry: entry}}
	if err := s.attachQuotes(ctx, matches); err != nil {
		return nil, err
	}
	return matches[0], nil
}

// FindAlternatives returns entries sharing the base salt of the entry's
// composition, excluding the entry itself, ordered by name.
func (s *CatalogService) FindAlternatives(ctx context.Context, entryID string, limit int) ([]*medprice.Match, error) {
	m, err := s.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	salt := medprice.BaseSalt(m.Entry.Composition)
	if salt == "" {
		return []*medprice.Match{}, nil
	}
	if limit <= 0 {
		limit = medprice.DefaultMatchLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id != ? AND instr(lower(composition), lower(?)) > 0
		ORDER BY name ASC
	`, entryID, salt)
	if err != nil {
		return nil, err
	}

	candidates, err := scanMatches(rows, false)
	if err != nil {
		return nil, err
	}

	alternatives := make([]*medprice.Match, 0, limit)
	for _, c := range candidates {
		if len(alternatives) == limit {
			break
		}
		if strings.EqualFold(medprice.BaseSalt(c.Entry.Composition), salt) {
			alternatives = append(alternatives, c)
		}
	}

	if err := s.attachQuotes(ctx, alternatives); err != nil {
		return nil, err
	}
	return alternatives, nil
}

// attachQuotes loads the quotes of every match in one query.
// Matches without quotes get an empty slice.
func (s *CatalogService) attachQuotes(ctx context.Context, matches []*medprice.Match) error {
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[string]*medprice.Match, len(matches))
	args := make([]any, 0, len(matches))
	for _, m := range matches {
		m.Quotes = []*medprice.PriceQuote{}
		byID[m.Entry.ID] = m
		args = append(args, m.Entry.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, vendor, price, url, in_stock, observed_at, fingerprint
		FROM quotes
		WHERE entry_id IN (`+placeholders(len(args))+`)
		ORDER BY price ASC, vendor ASC
	`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q medprice.PriceQuote
		var vendor, observedAt string
		if err := rows.Scan(&q.EntryID, &vendor, &q.Price, &q.URL, &q.InStock, &observedAt, &q.Fingerprint); err != nil {
			return err
		}
		q.Vendor = medprice.Vendor(vendor)
		if q.ObservedAt, err = parseRFC3339(observedAt, "observed_at"); err != nil {
			return err
		}
		if m, ok := byID[q.EntryID]; ok {
			m.Quotes = append(m.Quotes, &q)
		}
	}

	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner, extra ...any) (*medprice.CatalogEntry, error) {
	var e medprice.CatalogEntry
	var createdAt, updatedAt string

	dest := append([]any{&e.ID, &e.Name, &e.Composition, &e.Manufacturer, &e.PackSize, &createdAt, &updatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if e.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &e, nil
}

// scanMatches reads entry rows, with a trailing score column when scored is
// set, and closes rows.
func scanMatches(rows *sql.Rows, scored bool) ([]*medprice.Match, error) {
	defer rows.Close()

	matches := []*medprice.Match{}
	for rows.Next() {
		var m medprice.Match
		var extra []any
		if scored {
			extra = append(extra, &m.Score)
		}
		entry, err := scanEntry(rows, extra...)
		if err != nil {
			return nil, err
		}
		m.Entry = entry
		matches = append(matches, &m)
	}

	return matches, rows.Err()
}

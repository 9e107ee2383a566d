package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/medprice"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Compile-time interface verification.
var _ medprice.CatalogService = (*CatalogService)(nil)

// foreignKeyViolation is the SQLSTATE of a foreign key violation.
const foreignKeyViolation = "23503"

// CatalogService implements medprice.CatalogService using PostgreSQL.
type CatalogService struct {
	db *DB
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(db *DB) *CatalogService {
	return &CatalogService{db: db}
}

const entryColumns = "id, name, composition, manufacturer, pack_size, created_at, updated_at"

// UpsertEntry inserts an entry or refreshes the existing one with the same
// name and manufacturer.
func (s *CatalogService) UpsertEntry(ctx context.Context, c *medprice.EntryCandidate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()

	var id string
	err := s.db.pool.QueryRow(ctx, `
		INSERT INTO entries (id, name, composition, manufacturer, pack_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (name, manufacturer) DO UPDATE SET
			composition = CASE WHEN excluded.composition <> '' THEN excluded.composition ELSE entries.composition END,
			pack_size = CASE WHEN excluded.pack_size <> '' THEN excluded.pack_size ELSE entries.pack_size END,
			updated_at = excluded.updated_at
		RETURNING id
	`, uuid.New().String(), strings.TrimSpace(c.Name), strings.TrimSpace(c.Composition),
		strings.TrimSpace(c.Manufacturer), strings.TrimSpace(c.PackSize), now).Scan(&id)
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

	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO quotes (entry_id, vendor, price, url, in_stock, observed_at, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entry_id, vendor) DO UPDATE SET
			price = excluded.price,
			url = excluded.url,
			in_stock = excluded.in_stock,
			observed_at = excluded.observed_at,
			fingerprint = excluded.fingerprint
	`, q.EntryID, string(q.Vendor), q.Price, q.URL, q.InStock, q.ObservedAt.UTC(), q.Fingerprint)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
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

	rows, err := s.db.pool.Query(ctx, `
		SELECT `+entryColumns+`,
			GREATEST(similarity(name, $1), similarity(composition, $1))::float8 AS score
		FROM entries
		WHERE strpos(lower(name), lower($1)) > 0
			OR strpos(lower(composition), lower($1)) > 0
			OR similarity(name, $1) > $2
			OR similarity(composition, $1) > $2
		ORDER BY score DESC, name ASC
		LIMIT $3
	`, query, medprice.SimilarityThreshold, limit)
	if err != nil {
		return nil, err
	}

	matches, err := collectMatches(rows, true)
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
	var e medprice.CatalogEntry
	err := s.db.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.Composition, &e.Manufacturer, &e.PackSize, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, medprice.Errorf(medprice.ENOTFOUND, "entry not found")
	}
	if err != nil {
		return nil, err
	}

	matches := []*medprice.Match{{Entry: &e}}
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

	rows, err := s.db.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE id <> $1 AND strpos(lower(composition), lower($2)) > 0
		ORDER BY name ASC
	`, entryID, salt)
	if err != nil {
		return nil, err
	}

	candidates, err := collectMatches(rows, false)
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

func (s *CatalogService) attachQuotes(ctx context.Context, matches []*medprice.Match) error {
	if len(matches) == 0 {
		return nil
	}

	byID := make(map[string]*medprice.Match, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		m.Quotes = []*medprice.PriceQuote{}
		byID[m.Entry.ID] = m
		ids = append(ids, m.Entry.ID)
	}

	rows, err := s.db.pool.Query(ctx, `
		SELECT entry_id, vendor, price, url, in_stock, observed_at, fingerprint
		FROM quotes
		WHERE entry_id = ANY($1)
		ORDER BY price ASC, vendor ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q medprice.PriceQuote
		var vendor string
		if err := rows.Scan(&q.EntryID, &vendor, &q.Price, &q.URL, &q.InStock, &q.ObservedAt, &q.Fingerprint); err != nil {
			return err
		}
		q.Vendor = medprice.Vendor(vendor)
		q.ObservedAt = q.ObservedAt.UTC()
		if m, ok := byID[q.EntryID]; ok {
			m.Quotes = append(m.Quotes, &q)
		}
	}

	return rows.Err()
}

func collectMatches(rows pgx.Rows, scored bool) ([]*medprice.Match, error) {
	defer rows.Close()

	matches := []*medprice.Match{}
	for rows.Next() {
		var e medprice.CatalogEntry
		m := &medprice.Match{Entry: &e}
		dest := []any{&e.ID, &e.Name, &e.Composition, &e.Manufacturer, &e.PackSize, &e.CreatedAt, &e.UpdatedAt}
		if scored {
			dest = append(dest, &m.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

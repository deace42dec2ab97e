package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/query"
)

// dateLayout is how date_added is written to the store.
const dateLayout = "2006-01-02"

const catalogColumns = `id, show_id, type, title, director, cast_members, country,
	date_added, year_added, release_year, rating, duration, listed_in, description`

// CatalogRepo encapsulates all queries against catalog_entries.  It works
// with both the mysql and sqlite drivers: every statement uses positional
// "?" placeholders and portable SQL.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo constructs a CatalogRepo with the provided DB handle.
func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// Exists reports whether an entry with showID is already stored.
func (r *CatalogRepo) Exists(ctx context.Context, showID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM catalog_entries WHERE show_id = ? LIMIT 1", showID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Create inserts e and populates its ID.  ErrDuplicate is returned when the
// show_id is already present.
func (r *CatalogRepo) Create(ctx context.Context, e *model.CatalogEntry) error {
	const q = `INSERT INTO catalog_entries
		(show_id, type, title, director, cast_members, country, date_added,
		 year_added, release_year, rating, duration, listed_in, description,
		 title_search, listed_in_search)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		e.ShowID, e.Type, e.Title,
		nullString(e.Director), nullString(e.Cast), nullString(e.Country),
		dateArg(e.DateAdded),
		e.YearAdded, e.ReleaseYear, e.Rating, e.Duration, e.ListedIn,
		nullString(e.Description),
		strings.ToLower(e.Title), strings.ToLower(e.ListedIn),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// InsertIfAbsent inserts e unless an entry with the same show_id exists.
// It reports whether a row was written.  A unique violation raised by a
// concurrent insert counts as "already present".
func (r *CatalogRepo) InsertIfAbsent(ctx context.Context, e *model.CatalogEntry) (bool, error) {
	exists, err := r.Exists(ctx, e.ShowID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := r.Create(ctx, e); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Count returns the number of stored entries.
func (r *CatalogRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_entries").Scan(&n)
	return n, err
}

// List returns every entry matching f ordered by id.
func (r *CatalogRepo) List(ctx context.Context, f query.Filter) ([]model.CatalogEntry, error) {
	cond, args := f.Where()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+catalogColumns+" FROM catalog_entries WHERE "+cond+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CatalogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByShowID fetches one entry.  It returns ErrNotFound if no row matches.
func (r *CatalogRepo) GetByShowID(ctx context.Context, showID string) (*model.CatalogEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+catalogColumns+" FROM catalog_entries WHERE show_id = ? LIMIT 1", showID)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (model.CatalogEntry, error) {
	var (
		e                                    model.CatalogEntry
		director, cast, country, description sql.NullString
		dateAdded                            any
	)
	err := s.Scan(&e.ID, &e.ShowID, &e.Type, &e.Title, &director, &cast, &country,
		&dateAdded, &e.YearAdded, &e.ReleaseYear, &e.Rating, &e.Duration, &e.ListedIn, &description)
	if err != nil {
		return e, err
	}
	e.Director = stringPtr(director)
	e.Cast = stringPtr(cast)
	e.Country = stringPtr(country)
	e.Description = stringPtr(description)
	if e.DateAdded, err = storedDate(dateAdded); err != nil {
		return e, fmt.Errorf("show %s: %w", e.ShowID, err)
	}
	return e, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// storedDate normalizes the date_added column: mysql with parseTime returns
// time.Time, sqlite may return the text as written or a parsed time.
func storedDate(v any) (*time.Time, error) {
	var s string
	switch d := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return &t, nil
	case string:
		s = d
	case []byte:
		s = string(d)
	default:
		return nil, fmt.Errorf("unexpected date_added type %T", v)
	}
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable date_added %q", s)
}

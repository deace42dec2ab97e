// Package query narrows the working set of catalog entries before they are
// aggregated.  The same Filter is applied in memory (reports over the cleaned
// file) and translated into SQL for the store.
package query

import (
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/catalog-insights/internal/model"
)

// ErrInvalidYear is returned when the year parameter is not an integer.
var ErrInvalidYear = errors.New("year must be an integer")

// Filter holds the optional constraints.  Empty strings and HasYear=false
// impose nothing; supplied constraints are combined with AND.
type Filter struct {
	Genre   string // case-insensitive substring of listed_in
	Rating  string // exact rating
	Year    int    // exact year_added
	HasYear bool
}

// ParseFilter builds a Filter from raw request parameters.
func ParseFilter(genre, rating, year string) (Filter, error) {
	f := Filter{Genre: strings.TrimSpace(genre)}
	// ratings compare exactly; only a blank value means "no constraint"
	if strings.TrimSpace(rating) != "" {
		f.Rating = rating
	}
	if y := strings.TrimSpace(year); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			return Filter{}, ErrInvalidYear
		}
		f.Year, f.HasYear = n, true
	}
	return f, nil
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Genre == "" && f.Rating == "" && !f.HasYear
}

// Match reports whether e satisfies every supplied constraint.
func (f Filter) Match(e model.CatalogEntry) bool {
	if f.Genre != "" && !strings.Contains(strings.ToLower(e.ListedIn), strings.ToLower(f.Genre)) {
		return false
	}
	if f.Rating != "" && e.Rating != f.Rating {
		return false
	}
	if f.HasYear && e.YearAdded != f.Year {
		return false
	}
	return true
}

// Apply returns the entries matching f, preserving order.
func Apply(entries []model.CatalogEntry, f Filter) []model.CatalogEntry {
	if f.IsZero() {
		return entries
	}
	out := make([]model.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Where renders the filter as a SQL condition over catalog_entries with
// positional placeholders.  The condition is "1=1" when nothing is supplied.
// Genres match listed_in_search, which holds strings.ToLower(listed_in), so
// the result is the same set Match selects.
func (f Filter) Where() (string, []any) {
	where := []string{}
	args := []any{}
	if f.Genre != "" {
		where = append(where, `listed_in_search LIKE ? ESCAPE '!'`)
		args = append(args, "%"+EscapeLike(strings.ToLower(f.Genre))+"%")
	}
	if f.Rating != "" {
		where = append(where, "rating = ?")
		args = append(args, f.Rating)
	}
	if f.HasYear {
		where = append(where, "year_added = ?")
		args = append(args, f.Year)
	}
	if len(where) == 0 {
		return "1=1", args
	}
	return strings.Join(where, " AND "), args
}

// EscapeLike escapes LIKE wildcards for use with ESCAPE '!'.  A backslash
// would need different quoting in MySQL and SQLite.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}

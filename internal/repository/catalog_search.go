package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/query"
)

// CatalogSearchQuery defines filters & pagination for browsing entries.
type CatalogSearchQuery struct {
	Filter   query.Filter
	Title    string
	Type     string
	Page     int
	PageSize int
}

// Search returns one page of entries matching q together with the total
// number of matches.
func (r *CatalogRepo) Search(ctx context.Context, q CatalogSearchQuery) ([]model.CatalogEntry, int64, error) {
	cond, args := q.Filter.Where()
	where := []string{cond}

	if q.Title != "" {
		where = append(where, "title_search LIKE ? ESCAPE '!'")
		args = append(args, "%"+query.EscapeLike(strings.ToLower(q.Title))+"%")
	}
	if q.Type != "" {
		where = append(where, "type = ?")
		args = append(args, q.Type)
	}
	cond = strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM catalog_entries WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	argsData := append(append([]any{}, args...), size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+catalogColumns+" FROM catalog_entries WHERE "+cond+" ORDER BY id LIMIT ? OFFSET ?",
		argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.CatalogEntry, 0, size)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

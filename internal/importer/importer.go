// Package importer loads a cleaned table into the catalog store.  Rows are
// inserted only when their show_id is not stored yet, so running the same
// import twice leaves the store unchanged.
package importer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/catalog-insights/internal/cleaning"
	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/queue"
)

// Store is the part of the catalog repository the importer writes through.
type Store interface {
	InsertIfAbsent(ctx context.Context, e *model.CatalogEntry) (bool, error)
}

// Publisher announces finished imports.
type Publisher interface {
	PublishImported(ctx context.Context, ev queue.ImportedEvent) error
}

// Invalidator drops cached pages rendered from older data.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Result summarizes one import run.
type Result struct {
	BatchID    string    `json:"batch_id"`
	Total      int       `json:"total"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Importer writes cleaned rows to a Store.  Publisher and Cache are
// optional; failures of either are logged and never abort an import.
type Importer struct {
	Store     Store
	Publisher Publisher
	Cache     Invalidator
	Source    string
	Logger    *log.Logger

	now func() time.Time
}

// New returns an importer writing to store.  A nil logger discards output.
func New(store Store, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Importer{Store: store, Logger: logger, now: time.Now}
}

// Import inserts every row of t that is not stored yet.  On a store error
// the partial result is returned together with the error.
func (im *Importer) Import(ctx context.Context, t *cleaning.Table) (Result, error) {
	now := im.now
	if now == nil {
		now = time.Now
	}
	res := Result{BatchID: uuid.NewString(), Total: t.Len(), StartedAt: now().UTC()}

	for r := 0; r < t.Len(); r++ {
		if err := ctx.Err(); err != nil {
			res.FinishedAt = now().UTC()
			return res, err
		}
		e := EntryFromRow(t, r)
		inserted, err := im.Store.InsertIfAbsent(ctx, &e)
		if err != nil {
			res.FinishedAt = now().UTC()
			return res, fmt.Errorf("insert %s: %w", e.ShowID, err)
		}
		if inserted {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	res.FinishedAt = now().UTC()
	im.Logger.Printf("importer: batch %s: %d rows, %d inserted, %d skipped",
		res.BatchID, res.Total, res.Inserted, res.Skipped)

	if res.Total > 0 && im.Publisher != nil {
		ev := queue.ImportedEvent{
			BatchID:    res.BatchID,
			Source:     im.Source,
			Total:      res.Total,
			Inserted:   res.Inserted,
			Skipped:    res.Skipped,
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
		}
		if err := im.Publisher.PublishImported(ctx, ev); err != nil {
			im.Logger.Printf("importer: publish batch %s: %v", res.BatchID, err)
		}
	}
	if res.Inserted > 0 && im.Cache != nil {
		if err := im.Cache.Invalidate(ctx); err != nil {
			im.Logger.Printf("importer: invalidate page cache: %v", err)
		}
	}
	return res, nil
}

// Layouts accepted for date_added, tried in order.
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate parses a free-text date_added value.  It returns nil when the
// value is missing or matches no known layout.
func ParseDate(v string) *time.Time {
	v = strings.Join(strings.Fields(v), " ")
	if cleaning.IsMissing(v) {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// EntryFromRow maps row r of t onto a CatalogEntry.  Optional columns that
// are absent or missing become NULL and non-numeric years become 0.
func EntryFromRow(t *cleaning.Table, r int) model.CatalogEntry {
	e := model.CatalogEntry{
		ShowID:      strings.TrimSpace(t.Get(r, cleaning.ColShowID)),
		Type:        t.Get(r, cleaning.ColType),
		Title:       t.Get(r, cleaning.ColTitle),
		Director:    optional(t, r, cleaning.ColDirector),
		Cast:        optional(t, r, cleaning.ColCast),
		Country:     optional(t, r, cleaning.ColCountry),
		DateAdded:   ParseDate(t.Get(r, cleaning.ColDateAdded)),
		ReleaseYear: year(t.Get(r, cleaning.ColReleaseYear)),
		Rating:      t.Get(r, cleaning.ColRating),
		Duration:    t.Get(r, cleaning.ColDuration),
		ListedIn:    t.Get(r, cleaning.ColListedIn),
		Description: optional(t, r, cleaning.ColDescription),
	}
	if t.Index(cleaning.ColYearAdded) >= 0 {
		e.YearAdded = year(t.Get(r, cleaning.ColYearAdded))
	} else {
		e.YearAdded = cleaning.YearFromDate(t.Get(r, cleaning.ColDateAdded))
	}
	return e
}

func optional(t *cleaning.Table, r int, col string) *string {
	if t.Index(col) < 0 {
		return nil
	}
	v := t.Get(r, col)
	if cleaning.IsMissing(v) {
		return nil
	}
	return &v
}

func year(v string) int {
	y, ok := cleaning.ParseYear(v)
	if !ok {
		return 0
	}
	return y
}

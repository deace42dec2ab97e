package cleaning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// requiredColumns must be present in the raw input.
var requiredColumns = []string{ColShowID, ColRating}

// Pipeline reads the raw CSV, cleans it and caches the result.  When the
// cache file already exists it is loaded verbatim and nothing is recomputed.
type Pipeline struct {
	RawPath   string
	CachePath string
	Options   Options
	Logger    *log.Logger
}

// Result is what a pipeline run produced.
type Result struct {
	Table     *Table
	Stats     Stats
	FromCache bool
}

// NewPipeline builds a pipeline.  A nil logger discards output.
func NewPipeline(rawPath, cachePath string, opts Options, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{RawPath: rawPath, CachePath: cachePath, Options: opts, Logger: logger}
}

// Run returns the cleaned table, from the cache when possible.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if _, err := os.Stat(p.CachePath); err == nil {
		t, err := LoadCSV(p.CachePath)
		if err != nil {
			return Result{}, fmt.Errorf("load cleaned cache: %w", err)
		}
		p.Logger.Printf("loaded cleaned data from %s (%d rows)", p.CachePath, t.Len())
		return Result{Table: t, Stats: Stats{RowsIn: t.Len(), RowsOut: t.Len()}, FromCache: true}, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("stat cleaned cache: %w", err)
	}

	raw, err := LoadCSV(p.RawPath)
	if err != nil {
		return Result{}, fmt.Errorf("load raw data: %w", err)
	}
	for _, col := range requiredColumns {
		if raw.Index(col) < 0 {
			return Result{}, fmt.Errorf("raw data %s: missing column %q", p.RawPath, col)
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	cleaned, st := Clean(raw, p.Options)
	if err := SaveCSV(p.CachePath, cleaned); err != nil {
		return Result{}, fmt.Errorf("save cleaned data: %w", err)
	}
	p.Logger.Printf("cleaned %d -> %d rows (relocated=%d no_rating=%d duplicates=%d); saved to %s",
		st.RowsIn, st.RowsOut, st.DurationsRelocated, st.DroppedNoRating, st.Duplicates, p.CachePath)
	return Result{Table: cleaned, Stats: st}, nil
}

// Rebuild discards the cached table and runs the pipeline from the raw file.
func (p *Pipeline) Rebuild(ctx context.Context) (Result, error) {
	if err := os.Remove(p.CachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("remove cleaned cache: %w", err)
	}
	return p.Run(ctx)
}

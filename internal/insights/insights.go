// Package insights computes the frequency and trend aggregates shown on the
// analysis page.  Every function works on an already filtered slice of
// entries and never rounds or smooths counts.
package insights

import (
	"sort"
	"strings"

	"github.com/iliyamo/catalog-insights/internal/model"
)

// TopGenres is the number of genres shown on the genre chart.
const TopGenres = 5

// Count is one bar of a frequency chart.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// YearCount is one point of the yearly trend.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// RatingPoint counts the titles released in one year under one rating.
type RatingPoint struct {
	ReleaseYear int    `json:"release_year"`
	Rating      string `json:"rating"`
	Count       int    `json:"count"`
}

// Options lists the distinct values offered by the filter dropdowns.
type Options struct {
	Genres  []string `json:"genres"`
	Ratings []string `json:"ratings"`
	Years   []int    `json:"years"`
}

// Summary bundles every aggregate for one working set.
type Summary struct {
	Total   int         `json:"total"`
	Genres  []Count     `json:"genres"`
	Ratings []Count     `json:"ratings"`
	Years   []YearCount `json:"years"`
	Options Options     `json:"options"`
}

// SplitGenres splits a listed_in value on commas, trimming blanks.
func SplitGenres(listedIn string) []string {
	parts := strings.Split(listedIn, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GenreFrequency counts individual genres and returns the n most frequent,
// by descending count.  Ties keep the order of first appearance.  n <= 0
// returns every genre.
func GenreFrequency(entries []model.CatalogEntry, n int) []Count {
	var c counter
	for _, e := range entries {
		for _, g := range SplitGenres(e.ListedIn) {
			c.add(g)
		}
	}
	out := c.sorted()
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RatingFrequency counts every rating value, by descending count.
func RatingFrequency(entries []model.CatalogEntry) []Count {
	var c counter
	for _, e := range entries {
		c.add(e.Rating)
	}
	return c.sorted()
}

// YearlyTrend counts entries per valid year_added (> 0), ascending by year.
func YearlyTrend(entries []model.CatalogEntry) []YearCount {
	counts := map[int]int{}
	for _, e := range entries {
		if e.YearAdded > 0 {
			counts[e.YearAdded]++
		}
	}
	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// ReleaseYearTrend counts entries per valid release_year (> 0), ascending.
func ReleaseYearTrend(entries []model.CatalogEntry) []YearCount {
	counts := map[int]int{}
	for _, e := range entries {
		if e.ReleaseYear > 0 {
			counts[e.ReleaseYear]++
		}
	}
	out := make([]YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// RatingByRelease pairs every valid release_year with the ratings released
// in it, ordered by year then rating.
func RatingByRelease(entries []model.CatalogEntry) []RatingPoint {
	type key struct {
		year   int
		rating string
	}
	counts := map[key]int{}
	for _, e := range entries {
		if e.ReleaseYear > 0 {
			counts[key{e.ReleaseYear, e.Rating}]++
		}
	}
	out := make([]RatingPoint, 0, len(counts))
	for k, n := range counts {
		out = append(out, RatingPoint{ReleaseYear: k.year, Rating: k.rating, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReleaseYear != out[j].ReleaseYear {
			return out[i].ReleaseYear < out[j].ReleaseYear
		}
		return out[i].Rating < out[j].Rating
	})
	return out
}

// FilterOptions returns the sorted distinct genres, ratings and valid years
// of the working set.
func FilterOptions(entries []model.CatalogEntry) Options {
	genres := map[string]struct{}{}
	ratings := map[string]struct{}{}
	years := map[int]struct{}{}
	for _, e := range entries {
		for _, g := range SplitGenres(e.ListedIn) {
			genres[g] = struct{}{}
		}
		ratings[e.Rating] = struct{}{}
		if e.YearAdded > 0 {
			years[e.YearAdded] = struct{}{}
		}
	}
	opts := Options{
		Genres:  make([]string, 0, len(genres)),
		Ratings: make([]string, 0, len(ratings)),
		Years:   make([]int, 0, len(years)),
	}
	for g := range genres {
		opts.Genres = append(opts.Genres, g)
	}
	for r := range ratings {
		opts.Ratings = append(opts.Ratings, r)
	}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	sort.Strings(opts.Genres)
	sort.Strings(opts.Ratings)
	sort.Ints(opts.Years)
	return opts
}

// Summarize computes every aggregate for entries.
func Summarize(entries []model.CatalogEntry) Summary {
	return Summary{
		Total:   len(entries),
		Genres:  GenreFrequency(entries, TopGenres),
		Ratings: RatingFrequency(entries),
		Years:   YearlyTrend(entries),
		Options: FilterOptions(entries),
	}
}

// counter counts labels while remembering the order they first appeared in.
type counter struct {
	order  []string
	counts map[string]int
}

func (c *counter) add(label string) {
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

func (c *counter) sorted() []Count {
	out := make([]Count, len(c.order))
	for i, l := range c.order {
		out[i] = Count{Label: l, Count: c.counts[l]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

package cleaning

import (
	"regexp"
	"strconv"
	"strings"
)

// MissingDatePolicy decides what happens to rows without a date_added value.
type MissingDatePolicy string

const (
	// KeepMissingDate keeps the row and records year_added as 0.
	KeepMissingDate MissingDatePolicy = "keep"
	// DropMissingDate removes the row.
	DropMissingDate MissingDatePolicy = "drop"
)

// DefaultSentinel replaces every value still missing after the repairs.
const DefaultSentinel = "Unknown"

var (
	reYear     = regexp.MustCompile(`\d{4}`)
	reDuration = regexp.MustCompile(`\d+\s*min`)
)

// Options tunes Clean.  The zero value keeps rows with a missing date and
// fills gaps with "Unknown".
type Options struct {
	MissingDate MissingDatePolicy
	Sentinel    string
}

func (o Options) withDefaults() Options {
	if o.MissingDate != DropMissingDate {
		o.MissingDate = KeepMissingDate
	}
	if o.Sentinel == "" {
		o.Sentinel = DefaultSentinel
	}
	return o
}

// Stats counts what each repair did.
type Stats struct {
	RowsIn             int `json:"rows_in"`
	RowsOut            int `json:"rows_out"`
	CountriesFixed     int `json:"countries_fixed"`
	DroppedMissingDate int `json:"dropped_missing_date"`
	DurationsRelocated int `json:"durations_relocated"`
	DroppedNoRating    int `json:"dropped_no_rating"`
	ReleaseYearsZeroed int `json:"release_years_zeroed"`
	CellsFilled        int `json:"cells_filled"`
	Duplicates         int `json:"duplicates"`
}

// IsDuration reports whether v looks like a runtime ("74 min") rather than a
// rating code.
func IsDuration(v string) bool {
	return reDuration.MatchString(v)
}

// YearFromDate returns the first 4-digit run of a free-text date, or 0.
func YearFromDate(v string) int {
	m := reYear.FindString(v)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}

// Clean applies the repairs in order and returns a new table; the input is
// not modified.  Clean is a fixed point on its own output.
func Clean(in *Table, opts Options) (*Table, Stats) {
	opts = opts.withDefaults()
	t := in.Clone()
	st := Stats{RowsIn: t.Len()}

	st.CountriesFixed = stripCountryArtifacts(t)
	st.DroppedMissingDate = deriveYearAdded(t, opts.MissingDate)
	st.DurationsRelocated = relocateDurations(t)
	st.DroppedNoRating = dropMissing(t, ColRating)
	st.ReleaseYearsZeroed = coerceYear(t, ColReleaseYear)
	st.CellsFilled = fillMissing(t, opts.Sentinel)
	st.Duplicates = dropDuplicates(t)

	st.RowsOut = t.Len()
	return t, st
}

// stripCountryArtifacts removes leading separators left over from joined
// country lists, e.g. ", South Korea".
func stripCountryArtifacts(t *Table) int {
	ci := t.Index(ColCountry)
	if ci < 0 {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		v := row[ci]
		trimmed := strings.TrimLeft(v, ",; \t")
		if trimmed != v {
			row[ci] = trimmed
			n++
		}
	}
	return n
}

// deriveYearAdded fills year_added from date_added and returns the number of
// rows removed by the drop policy.
func deriveYearAdded(t *Table, policy MissingDatePolicy) int {
	di := t.Index(ColDateAdded)
	yi := t.ensureColumn(ColYearAdded)

	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		if di < 0 || IsMissing(row[di]) {
			if policy == DropMissingDate {
				dropped++
				continue
			}
			row[yi] = "0"
			kept = append(kept, row)
			continue
		}
		row[yi] = strconv.Itoa(YearFromDate(row[di]))
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

// relocateDurations moves runtime values found in rating into duration and
// marks the rating as missing.
func relocateDurations(t *Table) int {
	ri := t.Index(ColRating)
	if ri < 0 {
		return 0
	}
	di := t.ensureColumn(ColDuration)
	n := 0
	for _, row := range t.Rows {
		if IsDuration(row[ri]) {
			row[di] = row[ri]
			row[ri] = ""
			n++
		}
	}
	return n
}

// dropMissing removes rows whose col is missing.
func dropMissing(t *Table, col string) int {
	ci := t.Index(col)
	if ci < 0 {
		return 0
	}
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		if IsMissing(row[ci]) {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

// coerceYear rewrites col as a base-10 integer, replacing anything that does
// not parse with 0.
func coerceYear(t *Table, col string) int {
	ci := t.Index(col)
	if ci < 0 {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		y, ok := ParseYear(row[ci])
		if !ok {
			n++
		}
		row[ci] = strconv.Itoa(y)
	}
	return n
}

// ParseYear accepts integers and integral floats ("2019.0").
func ParseYear(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if y, err := strconv.Atoi(v); err == nil {
		return y, true
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

func fillMissing(t *Table, sentinel string) int {
	n := 0
	for _, row := range t.Rows {
		for i, v := range row {
			if IsMissing(v) {
				row[i] = sentinel
				n++
			}
		}
	}
	return n
}

// dropDuplicates removes rows equal in every cell to an earlier row.
func dropDuplicates(t *Table) int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	dropped := len(t.Rows) - len(kept)
	t.Rows = kept
	return dropped
}

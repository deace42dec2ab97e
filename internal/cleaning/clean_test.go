package cleaning

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func testdataPath(name string) string {
	return filepath.Join("..", "..", "testdata", name)
}

func loadSample(t *testing.T) *Table {
	t.Helper()
	tbl, err := LoadCSV(testdataPath("netflix_titles_sample.csv"))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	return tbl
}

func rowByID(t *testing.T, tbl *Table, id string) []string {
	t.Helper()
	ci := tbl.Index(ColShowID)
	for _, r := range tbl.Rows {
		if r[ci] == id {
			return r
		}
	}
	return nil
}

func cell(tbl *Table, row []string, col string) string {
	i := tbl.Index(col)
	if i < 0 || row == nil {
		return ""
	}
	return row[i]
}

func TestCleanSample(t *testing.T) {
	raw := loadSample(t)
	out, st := Clean(raw, Options{})

	if st.RowsIn != 12 {
		t.Fatalf("expected 12 raw rows, got %d", st.RowsIn)
	}
	if out.Len() != 9 || st.RowsOut != 9 {
		t.Fatalf("expected 9 cleaned rows, got %d (stats %d)", out.Len(), st.RowsOut)
	}
	if st.DurationsRelocated != 1 || st.DroppedNoRating != 2 || st.Duplicates != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if st.CountriesFixed != 1 || st.ReleaseYearsZeroed != 1 {
		t.Fatalf("unexpected repair stats: %+v", st)
	}

	for _, id := range []string{"s4", "s9"} {
		if rowByID(t, out, id) != nil {
			t.Fatalf("row %s should have been dropped", id)
		}
	}

	if got := cell(out, rowByID(t, out, "s3"), ColCountry); got != "France" {
		t.Fatalf("country artifact not stripped: %q", got)
	}
	if got := cell(out, rowByID(t, out, "s7"), ColCountry); got != "Unknown" {
		t.Fatalf("missing country should be Unknown, got %q", got)
	}
	if got := cell(out, rowByID(t, out, "s8"), ColReleaseYear); got != "0" {
		t.Fatalf("invalid release year should be 0, got %q", got)
	}
	if got := cell(out, rowByID(t, out, "s2"), ColYearAdded); got != "2021" {
		t.Fatalf("year_added = %q, want 2021", got)
	}
	s6 := rowByID(t, out, "s6")
	if cell(out, s6, ColYearAdded) != "0" || cell(out, s6, ColDateAdded) != "Unknown" {
		t.Fatalf("missing date should give year 0 and Unknown date, got %q / %q",
			cell(out, s6, ColYearAdded), cell(out, s6, ColDateAdded))
	}
	if got := cell(out, rowByID(t, out, "s10"), ColYearAdded); got != "0" {
		t.Fatalf("date without a year should give 0, got %q", got)
	}
}

func TestCleanDropMissingDatePolicy(t *testing.T) {
	out, st := Clean(loadSample(t), Options{MissingDate: DropMissingDate})
	if st.DroppedMissingDate != 1 {
		t.Fatalf("expected one row dropped for missing date, got %d", st.DroppedMissingDate)
	}
	if out.Len() != 8 {
		t.Fatalf("expected 8 rows, got %d", out.Len())
	}
	if rowByID(t, out, "s6") != nil {
		t.Fatalf("s6 has no date_added and should be dropped")
	}
	if rowByID(t, out, "s10") == nil {
		t.Fatalf("s10 has an unparseable date but should be kept")
	}
}

func TestCleanRelocatesDurationAndDropsRow(t *testing.T) {
	raw := &Table{
		Columns: []string{ColShowID, ColRating, ColListedIn},
		Rows: [][]string{
			{"s1", "74 min", "Documentaries"},
			{"s2", "84min", "Stand-Up Comedy"},
			{"s3", "TV-14", "Dramas"},
		},
	}
	out, st := Clean(raw, Options{})
	if st.DurationsRelocated != 2 {
		t.Fatalf("expected 2 relocations, got %d", st.DurationsRelocated)
	}
	if out.Index(ColDuration) < 0 {
		t.Fatalf("duration column should be created")
	}
	if out.Len() != 1 || out.Rows[0][0] != "s3" {
		t.Fatalf("only s3 should survive, got %v", out.Rows)
	}
	for _, r := range out.Rows {
		if IsDuration(cell(out, r, ColRating)) {
			t.Fatalf("rating still holds a duration: %v", r)
		}
	}
}

func TestCleanDoesNotModifyInput(t *testing.T) {
	raw := loadSample(t)
	before := raw.Clone()
	Clean(raw, Options{})
	if len(raw.Columns) != len(before.Columns) || raw.Len() != before.Len() {
		t.Fatalf("input table shape changed")
	}
	for i := range raw.Rows {
		if strings.Join(raw.Rows[i], "|") != strings.Join(before.Rows[i], "|") {
			t.Fatalf("input row %d changed", i)
		}
	}
}

func TestCleanNoDuplicateRows(t *testing.T) {
	out, _ := Clean(loadSample(t), Options{})
	seen := map[string]bool{}
	for _, r := range out.Rows {
		k := strings.Join(r, "\x1f")
		if seen[k] {
			t.Fatalf("duplicate row survived: %v", r)
		}
		seen[k] = true
	}
}

func TestCleanIsFixedPoint(t *testing.T) {
	once, _ := Clean(loadSample(t), Options{})
	twice, st := Clean(once, Options{})
	if st.RowsIn != st.RowsOut {
		t.Fatalf("second pass dropped rows: %+v", st)
	}

	var a, b bytes.Buffer
	if err := WriteCSV(&a, once); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if err := WriteCSV(&b, twice); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if a.String() != b.String() {
		t.Fatalf("cleaning is not idempotent:\n%s\n---\n%s", a.String(), b.String())
	}
}

func TestCleanCustomSentinel(t *testing.T) {
	raw := &Table{
		Columns: []string{ColShowID, ColRating, ColDirector},
		Rows:    [][]string{{"s1", "R", "NaN"}},
	}
	out, st := Clean(raw, Options{Sentinel: "n/a"})
	if got := cell(out, out.Rows[0], ColDirector); got != "n/a" {
		t.Fatalf("director = %q, want n/a", got)
	}
	if st.CellsFilled == 0 {
		t.Fatalf("expected filled cells to be counted")
	}
}

func TestYearFromDate(t *testing.T) {
	cases := map[string]int{
		"September 24, 2021": 2021,
		" August 4, 2017":    2017,
		"2019-01-01":         2019,
		"Coming soon":        0,
		"":                   0,
	}
	for in, want := range cases {
		if got := YearFromDate(in); got != want {
			t.Fatalf("YearFromDate(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestIsDuration(t *testing.T) {
	for _, v := range []string{"74 min", "84min", "66  min"} {
		if !IsDuration(v) {
			t.Fatalf("%q should be a duration", v)
		}
	}
	for _, v := range []string{"PG-13", "TV-MA", "NR", ""} {
		if IsDuration(v) {
			t.Fatalf("%q should not be a duration", v)
		}
	}
}

func TestReadCSVHandlesBOMAndRaggedRows(t *testing.T) {
	in := "\xEF\xBB\xBFshow_id,rating,title\ns1,PG\ns2,R,Two,extra\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Columns[0] != ColShowID {
		t.Fatalf("BOM not stripped from header: %q", tbl.Columns[0])
	}
	if len(tbl.Rows[0]) != 3 || tbl.Rows[0][2] != "" {
		t.Fatalf("short row not padded: %v", tbl.Rows[0])
	}
	if len(tbl.Rows[1]) != 3 {
		t.Fatalf("long row not truncated: %v", tbl.Rows[1])
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

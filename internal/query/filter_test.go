package query

import (
	"errors"
	"testing"

	"github.com/iliyamo/catalog-insights/internal/model"
)

func sampleEntries() []model.CatalogEntry {
	return []model.CatalogEntry{
		{ShowID: "s1", ListedIn: "Documentaries", Rating: "PG-13", YearAdded: 2021},
		{ShowID: "s2", ListedIn: "International TV Shows, TV Dramas", Rating: "TV-MA", YearAdded: 2021},
		{ShowID: "s3", ListedIn: "Dramas, International Movies", Rating: "PG", YearAdded: 2020},
		{ShowID: "s4", ListedIn: "Children & Family Movies", Rating: "PG", YearAdded: 0},
	}
}

func ids(entries []model.CatalogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ShowID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(" dramas ", "PG", "2020")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Genre != "dramas" || f.Rating != "PG" || !f.HasYear || f.Year != 2020 {
		t.Fatalf("unexpected filter: %+v", f)
	}

	f, err = ParseFilter("", "", "")
	if err != nil || !f.IsZero() {
		t.Fatalf("empty params should give zero filter, got %+v %v", f, err)
	}

	f, err = ParseFilter("", " PG", "")
	if err != nil || f.Rating != " PG" {
		t.Fatalf("rating should be kept verbatim, got %q %v", f.Rating, err)
	}
	if got := Apply(sampleEntries(), f); len(got) != 0 {
		t.Fatalf("padded rating matched %v", ids(got))
	}
	if f, _ = ParseFilter("", "   ", ""); f.Rating != "" {
		t.Fatalf("blank rating should impose nothing, got %q", f.Rating)
	}

	if _, err := ParseFilter("", "", "twenty"); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestApply(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"s1", "s2", "s3", "s4"}},
		{"genre substring case-insensitive", Filter{Genre: "DRAMA"}, []string{"s2", "s3"}},
		{"rating exact", Filter{Rating: "PG"}, []string{"s3", "s4"}},
		{"rating is not a prefix match", Filter{Rating: "PG-1"}, []string{}},
		{"year exact", Filter{Year: 2020, HasYear: true}, []string{"s3"}},
		{"year zero is a value", Filter{Year: 0, HasYear: true}, []string{"s4"}},
		{"and composition", Filter{Genre: "movies", Rating: "PG", Year: 2020, HasYear: true}, []string{"s3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(sampleEntries(), tc.filter))
			if !equalIDs(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWhere(t *testing.T) {
	cond, args := Filter{}.Where()
	if cond != "1=1" || len(args) != 0 {
		t.Fatalf("zero filter: %q %v", cond, args)
	}

	cond, args = Filter{Genre: "100%_Fun", Rating: "R", Year: 2019, HasYear: true}.Where()
	want := `listed_in_search LIKE ? ESCAPE '!' AND rating = ? AND year_added = ?`
	if cond != want {
		t.Fatalf("cond = %q, want %q", cond, want)
	}
	if len(args) != 3 || args[0] != `%100!%!_fun%` || args[1] != "R" || args[2] != 2019 {
		t.Fatalf("unexpected args: %#v", args)
	}
}

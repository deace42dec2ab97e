package chart

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"testing"

	"github.com/iliyamo/catalog-insights/internal/insights"
)

func decodePNG(t *testing.T, b []byte) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("empty image bounds %v", img.Bounds())
	}
}

func TestBarCharts(t *testing.T) {
	counts := []insights.Count{
		{Label: "International TV Shows", Count: 3},
		{Label: "Documentaries", Count: 2},
		{Label: "International Movies", Count: 2},
		{Label: "Children & Family Movies", Count: 2},
		{Label: "TV Dramas", Count: 1},
		{Label: "Comedies", Count: 1},
	}
	b, err := GenreBar(counts)
	if err != nil {
		t.Fatalf("GenreBar: %v", err)
	}
	decodePNG(t, b)

	b, err = RatingBar(counts[:2])
	if err != nil {
		t.Fatalf("RatingBar: %v", err)
	}
	decodePNG(t, b)
}

func TestYearLine(t *testing.T) {
	b, err := YearLine([]insights.YearCount{{Year: 2019, Count: 4}, {Year: 2020, Count: 1}, {Year: 2021, Count: 6}})
	if err != nil {
		t.Fatalf("YearLine: %v", err)
	}
	decodePNG(t, b)

	b, err = YearLine([]insights.YearCount{{Year: 2021, Count: 6}})
	if err != nil {
		t.Fatalf("YearLine single point: %v", err)
	}
	decodePNG(t, b)
}

func TestReleaseCharts(t *testing.T) {
	b, err := ReleaseYearLine([]insights.YearCount{{Year: 1993, Count: 1}, {Year: 2021, Count: 5}})
	if err != nil {
		t.Fatalf("ReleaseYearLine: %v", err)
	}
	decodePNG(t, b)

	b, err = RatingScatter([]insights.RatingPoint{
		{ReleaseYear: 1993, Rating: "TV-MA", Count: 1},
		{ReleaseYear: 2021, Rating: "PG", Count: 1},
		{ReleaseYear: 2021, Rating: "TV-MA", Count: 3},
	})
	if err != nil {
		t.Fatalf("RatingScatter: %v", err)
	}
	decodePNG(t, b)

	b, err = RatingScatter(nil)
	if err != nil {
		t.Fatalf("RatingScatter empty: %v", err)
	}
	decodePNG(t, b)
}

func TestEmptyInputsStillRender(t *testing.T) {
	set, err := RenderSet(insights.Summarize(nil))
	if err != nil {
		t.Fatalf("RenderSet: %v", err)
	}
	for name, enc := range map[string]string{"genre": set.Genre, "rating": set.Rating, "year": set.Year} {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			t.Fatalf("%s: invalid base64: %v", name, err)
		}
		decodePNG(t, raw)
	}
}

// Package chart renders the insight aggregates as PNG images and encodes
// them for inline embedding in HTML.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/iliyamo/catalog-insights/internal/insights"
)

// Chart titles.
const (
	GenreTitle  = "Most Common Genres"
	RatingTitle = "Content Distribution by Ratings"
	YearTitle   = "Trend of Additions Over Years"

	ReleaseTitle       = "Titles by Release Year"
	RatingReleaseTitle = "Rating by Release Year"
)

var (
	width  = 6.4 * vg.Inch
	height = 4.8 * vg.Inch

	barWidth = vg.Points(28)

	// palette: #E50914 #221F1F #B81D24 #F5F5F1 #757575
	palette = []color.Color{
		color.RGBA{R: 0xE5, G: 0x09, B: 0x14, A: 0xFF},
		color.RGBA{R: 0x22, G: 0x1F, B: 0x1F, A: 0xFF},
		color.RGBA{R: 0xB8, G: 0x1D, B: 0x24, A: 0xFF},
		color.RGBA{R: 0xF5, G: 0xF5, B: 0xF1, A: 0xFF},
		color.RGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xFF},
	}
	lineColor = palette[2]
)

// Set holds the three charts of the analysis page, base64 encoded.
type Set struct {
	Genre  string
	Rating string
	Year   string
}

// RenderSet renders every chart of a summary.
func RenderSet(s insights.Summary) (Set, error) {
	genre, err := GenreBar(s.Genres)
	if err != nil {
		return Set{}, fmt.Errorf("genre chart: %w", err)
	}
	rating, err := RatingBar(s.Ratings)
	if err != nil {
		return Set{}, fmt.Errorf("rating chart: %w", err)
	}
	year, err := YearLine(s.Years)
	if err != nil {
		return Set{}, fmt.Errorf("year chart: %w", err)
	}
	return Set{Genre: Base64(genre), Rating: Base64(rating), Year: Base64(year)}, nil
}

// GenreBar draws the genre frequency bar chart.
func GenreBar(counts []insights.Count) ([]byte, error) {
	return barChart(GenreTitle, "Genres", "Frequency", counts)
}

// RatingBar draws the rating distribution bar chart.
func RatingBar(counts []insights.Count) ([]byte, error) {
	return barChart(RatingTitle, "Ratings", "Number of Titles", counts)
}

// YearLine draws the yearly additions as a connected line with markers.
func YearLine(years []insights.YearCount) ([]byte, error) {
	return lineChart(YearTitle, "Year", "Number of Titles Added", years)
}

// ReleaseYearLine draws the number of titles per release year.
func ReleaseYearLine(years []insights.YearCount) ([]byte, error) {
	return lineChart(ReleaseTitle, "Release Year", "Number of Titles", years)
}

// RatingScatter places one marker per (release year, rating) pair.  Marker
// size grows with the number of titles behind the point.
func RatingScatter(points []insights.RatingPoint) ([]byte, error) {
	p := newPlot(RatingReleaseTitle, "Release Year", "Rating")
	if len(points) > 0 {
		ratings := distinctRatings(points)
		row := make(map[string]int, len(ratings))
		for i, r := range ratings {
			row[r] = i
		}
		most := 1
		for _, pt := range points {
			if pt.Count > most {
				most = pt.Count
			}
		}

		xys := make(plotter.XYs, len(points))
		for i, pt := range points {
			xys[i].X = float64(pt.ReleaseYear)
			xys[i].Y = float64(row[pt.Rating])
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  palette[0],
				Shape:  draw.CircleGlyph{},
				Radius: vg.Points(2 + 4*float64(points[i].Count)/float64(most)),
			}
		}
		p.Add(sc)
		p.NominalY(ratings...)
	}
	return render(p)
}

func distinctRatings(points []insights.RatingPoint) []string {
	seen := map[string]bool{}
	var out []string
	for _, pt := range points {
		if !seen[pt.Rating] {
			seen[pt.Rating] = true
			out = append(out, pt.Rating)
		}
	}
	sort.Strings(out)
	return out
}

func lineChart(title, xLabel, yLabel string, years []insights.YearCount) ([]byte, error) {
	p := newPlot(title, xLabel, yLabel)
	if len(years) > 0 {
		pts := make(plotter.XYs, len(years))
		for i, y := range years {
			pts[i].X = float64(y.Year)
			pts[i].Y = float64(y.Count)
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = lineColor
		line.LineStyle.Width = vg.Points(1.5)
		points.GlyphStyle.Color = lineColor
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Radius = vg.Points(3)
		p.Add(line, points)

		p.X.Min = float64(years[0].Year)
		p.X.Max = float64(years[len(years)-1].Year)
		p.X.Tick.Marker = yearTicks(years)
	}
	return render(p)
}

// Base64 encodes PNG bytes for a data:image/png;base64 URI.
func Base64(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

func barChart(title, xLabel, yLabel string, counts []insights.Count) ([]byte, error) {
	p := newPlot(title, xLabel, yLabel)
	labels := make([]string, len(counts))
	for i, c := range counts {
		bar, err := plotter.NewBarChart(plotter.Values{float64(c.Count)}, barWidth)
		if err != nil {
			return nil, err
		}
		bar.XMin = float64(i)
		bar.Color = palette[i%len(palette)]
		p.Add(bar)
		labels[i] = c.Label
	}
	if len(labels) > 0 {
		p.NominalX(labels...)
	}
	return render(p)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.X.Label.Text = xLabel
	p.X.Label.TextStyle.Font.Size = vg.Points(10)
	p.Y.Label.Text = yLabel
	p.Y.Label.TextStyle.Font.Size = vg.Points(10)
	p.X.Tick.Label.Rotation = 25 * math.Pi / 180
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	return p
}

// yearTicks places one labelled tick on every year present in the data.
func yearTicks(years []insights.YearCount) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		ticks := make([]plot.Tick, 0, len(years))
		for _, y := range years {
			ticks = append(ticks, plot.Tick{Value: float64(y.Year), Label: strconv.Itoa(y.Year)})
		}
		return ticks
	})
}

func render(p *plot.Plot) ([]byte, error) {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/catalog-insights/internal/chart"
	"github.com/iliyamo/catalog-insights/internal/insights"
	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/query"
)

// CatalogLister is the read side of the catalog repository.
type CatalogLister interface {
	List(ctx context.Context, f query.Filter) ([]model.CatalogEntry, error)
}

// AnalysisHandler serves the chart page and its JSON counterpart.
type AnalysisHandler struct {
	Entries CatalogLister
}

func NewAnalysisHandler(entries CatalogLister) *AnalysisHandler {
	return &AnalysisHandler{Entries: entries}
}

type selection struct {
	Genre  string
	Rating string
	Year   string
}

type analysisPage struct {
	GenreChart  template.URL
	RatingChart template.URL
	YearChart   template.URL
	Genres      []string
	Ratings     []string
	Years       []string
	Selected    selection
	Total       int
}

func filterFromQuery(c echo.Context) (query.Filter, error) {
	return query.ParseFilter(c.QueryParam("genre"), c.QueryParam("rating"), c.QueryParam("year"))
}

// load applies f against the store and aggregates the result.
func (h *AnalysisHandler) load(c echo.Context, f query.Filter) (insights.Summary, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	entries, err := h.Entries.List(ctx, f)
	if err != nil {
		return insights.Summary{}, err
	}
	return insights.Summarize(entries), nil
}

// Page renders the analysis page: three charts over the filtered titles
// and dropdowns listing the values present in that set.
func (h *AnalysisHandler) Page(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		if errors.Is(err, query.ErrInvalidYear) {
			return c.String(http.StatusBadRequest, "invalid year: must be an integer")
		}
		return c.String(http.StatusBadRequest, "invalid filter")
	}

	summary, err := h.load(c, f)
	if err != nil {
		c.Logger().Errorf("analysis: list entries: %v", err)
		return c.String(http.StatusInternalServerError, "failed to load catalog")
	}
	charts, err := chart.RenderSet(summary)
	if err != nil {
		c.Logger().Errorf("analysis: render charts: %v", err)
		return c.String(http.StatusInternalServerError, "failed to render charts")
	}

	sel := selection{Genre: f.Genre, Rating: f.Rating}
	if f.HasYear {
		sel.Year = strconv.Itoa(f.Year)
	}
	years := make([]string, len(summary.Options.Years))
	for i, y := range summary.Options.Years {
		years[i] = strconv.Itoa(y)
	}

	return c.Render(http.StatusOK, "analysis.html", analysisPage{
		GenreChart:  dataURI(charts.Genre),
		RatingChart: dataURI(charts.Rating),
		YearChart:   dataURI(charts.Year),
		Genres:      withSelected(summary.Options.Genres, sel.Genre),
		Ratings:     withSelected(summary.Options.Ratings, sel.Rating),
		Years:       withSelected(years, sel.Year),
		Selected:    sel,
		Total:       summary.Total,
	})
}

// Insights returns the same aggregates as the page, as JSON.
func (h *AnalysisHandler) Insights(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
	}
	summary, err := h.load(c, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, summary)
}

// dataURI marks a base64 PNG as a trusted image URL; html/template would
// otherwise replace the data: scheme.
func dataURI(b64 string) template.URL {
	return template.URL("data:image/png;base64," + b64)
}

// withSelected keeps a selected value visible in its dropdown even when the
// filtered set no longer contains it.
func withSelected(opts []string, sel string) []string {
	if sel == "" {
		return opts
	}
	for _, o := range opts {
		if o == sel {
			return opts
		}
	}
	return append([]string{sel}, opts...)
}

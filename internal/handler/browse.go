package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/repository"
)

// CatalogBrowser is the lookup side of the catalog repository.
type CatalogBrowser interface {
	Search(ctx context.Context, q repository.CatalogSearchQuery) ([]model.CatalogEntry, int64, error)
	GetByShowID(ctx context.Context, showID string) (*model.CatalogEntry, error)
}

// BrowseHandler exposes stored entries as paginated JSON.
type BrowseHandler struct {
	Entries CatalogBrowser
}

func NewBrowseHandler(entries CatalogBrowser) *BrowseHandler {
	return &BrowseHandler{Entries: entries}
}

// PublicEntry is a catalog entry as returned by the API.
type PublicEntry struct {
	ShowID      string  `json:"show_id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Director    *string `json:"director,omitempty"`
	Cast        *string `json:"cast,omitempty"`
	Country     *string `json:"country,omitempty"`
	DateAdded   *string `json:"date_added,omitempty"`
	YearAdded   int     `json:"year_added"`
	ReleaseYear int     `json:"release_year"`
	Rating      string  `json:"rating"`
	Duration    string  `json:"duration"`
	ListedIn    string  `json:"listed_in"`
	Description *string `json:"description,omitempty"`
}

func toPublic(e model.CatalogEntry) PublicEntry {
	p := PublicEntry{
		ShowID:      e.ShowID,
		Type:        e.Type,
		Title:       e.Title,
		Director:    e.Director,
		Cast:        e.Cast,
		Country:     e.Country,
		YearAdded:   e.YearAdded,
		ReleaseYear: e.ReleaseYear,
		Rating:      e.Rating,
		Duration:    e.Duration,
		ListedIn:    e.ListedIn,
		Description: e.Description,
	}
	if e.DateAdded != nil {
		d := e.DateAdded.Format("2006-01-02")
		p.DateAdded = &d
	}
	return p
}

// SearchEntries lists entries matching genre/rating/year plus optional
// title and type, page by page.
func (h *BrowseHandler) SearchEntries(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	ps, _ := strconv.Atoi(c.QueryParam("page_size"))
	if ps < 1 {
		ps = 20
	}
	if ps > 100 {
		ps = 100
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	items, total, err := h.Entries.Search(ctx, repository.CatalogSearchQuery{
		Filter:   f,
		Title:    strings.TrimSpace(c.QueryParam("title")),
		Type:     strings.TrimSpace(c.QueryParam("type")),
		Page:     page,
		PageSize: ps,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "database_error",
			"message": err.Error(),
		})
	}

	out := make([]PublicEntry, 0, len(items))
	for _, e := range items {
		out = append(out, toPublic(e))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      out,
		"total":     total,
		"page":      page,
		"page_size": ps,
	})
}

// GetEntry returns one entry by show_id.
func (h *BrowseHandler) GetEntry(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	e, err := h.Entries.GetByShowID(ctx, c.Param("show_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "entry not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, toPublic(*e))
}

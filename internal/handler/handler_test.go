package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/catalog-insights/internal/cleaning"
	"github.com/iliyamo/catalog-insights/internal/config"
	"github.com/iliyamo/catalog-insights/internal/database"
	"github.com/iliyamo/catalog-insights/internal/importer"
	"github.com/iliyamo/catalog-insights/internal/insights"
	"github.com/iliyamo/catalog-insights/internal/middleware"
	"github.com/iliyamo/catalog-insights/internal/model"
	"github.com/iliyamo/catalog-insights/internal/query"
	"github.com/iliyamo/catalog-insights/internal/repository"
	"github.com/iliyamo/catalog-insights/internal/utils"
)

const testSecret = "test-secret"

type fixture struct {
	e        *echo.Echo
	repo     *repository.CatalogRepo
	pipeline *cleaning.Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	sample, err := os.ReadFile(filepath.Join("..", "..", "testdata", "netflix_titles_sample.csv"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	raw := filepath.Join(dir, "netflix_titles.csv")
	if err := os.WriteFile(raw, sample, 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	db, err := database.Open(database.DriverSQLite, filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewCatalogRepo(db)

	quiet := log.New(io.Discard, "", 0)
	p := cleaning.NewPipeline(raw, filepath.Join(dir, "cleaned.csv"), cleaning.Options{}, quiet)
	res, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	im := importer.New(repo, quiet)
	if _, err := im.Import(ctx, res.Table); err != nil {
		t.Fatalf("import: %v", err)
	}

	renderer, err := NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	hash, err := utils.HashPassword("letmein", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	auth := config.AuthConfig{JWTSecret: testSecret, AccessTTLMin: 5, AdminUser: "admin", AdminPasswordHash: hash}

	e := echo.New()
	e.Renderer = renderer
	analysis := NewAnalysisHandler(repo)
	browse := NewBrowseHandler(repo)
	admin := NewAdminHandler(auth, p, im, quiet)
	e.GET("/healthz", Health)
	e.GET("/", analysis.Page)
	e.GET("/v1/insights", analysis.Insights)
	e.GET("/v1/entries", browse.SearchEntries)
	e.GET("/v1/entries/:show_id", browse.GetEntry)
	e.POST("/v1/admin/login", admin.Login)
	e.POST("/v1/admin/import", admin.Import, middleware.JWTAuth(testSecret), middleware.RequireRole(utils.RoleAdmin))

	return &fixture{e: e, repo: repo, pipeline: p}
}

func (f *fixture) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func parseDoc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func optionValues(doc *goquery.Document, selector string) []string {
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("value"); v != "" {
			out = append(out, v)
		}
	})
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPageRendersChartsAndDropdowns(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	doc := parseDoc(t, rec)

	imgs := doc.Find(".charts img")
	if imgs.Length() != 3 {
		t.Fatalf("expected 3 charts, got %d", imgs.Length())
	}
	imgs.Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		const prefix = "data:image/png;base64,"
		if !strings.HasPrefix(src, prefix) {
			t.Fatalf("chart %d src = %.40q", i, src)
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(src, prefix))
		if err != nil {
			t.Fatalf("chart %d base64: %v", i, err)
		}
		if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
			t.Fatalf("chart %d png: %v", i, err)
		}
	})

	if got := optionValues(doc, "#rating option"); strings.Join(got, ",") != "G,PG,PG-13,TV-MA" {
		t.Fatalf("rating options = %v", got)
	}
	if got := optionValues(doc, "#year option"); strings.Join(got, ",") != "2020,2021" {
		t.Fatalf("year options = %v", got)
	}
	if got := optionValues(doc, "#genre option"); len(got) != 14 {
		t.Fatalf("expected 14 genres, got %v", got)
	}
	if total := strings.TrimSpace(doc.Find(".total").Text()); total != "9 titles" {
		t.Fatalf("total = %q", total)
	}
	if doc.Find("option[selected]").Length() != 0 {
		t.Fatal("nothing should be selected without filters")
	}
}

func TestPageFiltersAndEchoesSelection(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/?rating=TV-MA&year=2021", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	doc := parseDoc(t, rec)

	if total := strings.TrimSpace(doc.Find(".total").Text()); total != "4 titles" {
		t.Fatalf("total = %q", total)
	}
	if v, _ := doc.Find("#rating option[selected]").Attr("value"); v != "TV-MA" {
		t.Fatalf("selected rating = %q", v)
	}
	if v, _ := doc.Find("#year option[selected]").Attr("value"); v != "2021" {
		t.Fatalf("selected year = %q", v)
	}
	if got := optionValues(doc, "#rating option"); strings.Join(got, ",") != "TV-MA" {
		t.Fatalf("rating options should come from the filtered set, got %v", got)
	}
}

func TestPageInvalidYear(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/?year=soon", "", nil)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid year") {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

type brokenLister struct{}

func (brokenLister) List(context.Context, query.Filter) ([]model.CatalogEntry, error) {
	return nil, errors.New("connection refused")
}

func TestPageStoreError(t *testing.T) {
	e := echo.New()
	renderer, err := NewRenderer()
	if err != nil {
		t.Fatal(err)
	}
	e.Renderer = renderer
	e.GET("/", NewAnalysisHandler(brokenLister{}).Page)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestInsightsJSON(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/insights?genre=international", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var s insights.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Total != 5 {
		t.Fatalf("total = %d", s.Total)
	}
	if len(s.Genres) == 0 || s.Genres[0] != (insights.Count{Label: "International TV Shows", Count: 3}) {
		t.Fatalf("genres = %v", s.Genres)
	}

	if rec := f.do(http.MethodGet, "/v1/insights?year=x", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid year: %d", rec.Code)
	}
}

func TestBrowseEntries(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/entries?page_size=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var page struct {
		Data  []PublicEntry `json:"data"`
		Total int64         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 9 || len(page.Data) != 2 || page.Data[0].ShowID != "s1" {
		t.Fatalf("unexpected page: %+v", page)
	}

	rec = f.do(http.MethodGet, "/v1/entries/s1", "", nil)
	var e PublicEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.DateAdded == nil || *e.DateAdded != "2021-09-25" {
		t.Fatalf("entry s1: %d %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(http.MethodGet, "/v1/entries/s404", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing entry: %d", rec.Code)
	}
}

func login(t *testing.T, f *fixture) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/v1/admin/login", `{"username":"admin","password":"letmein"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Access tokenPart `json:"access"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Access.Token == "" {
		t.Fatalf("login response: %s", rec.Body.String())
	}
	return resp.Access.Token
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{
		`{"username":"admin","password":"nope"}`,
		`{"username":"root","password":"letmein"}`,
	} {
		if rec := f.do(http.MethodPost, "/v1/admin/login", body, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: %d", body, rec.Code)
		}
	}
	if rec := f.do(http.MethodPost, "/v1/admin/login", `{"username":""}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: %d", rec.Code)
	}
}

func TestAdminImport(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodPost, "/v1/admin/import", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("without token: %d", rec.Code)
	}

	auth := http.Header{"Authorization": {"Bearer " + login(t, f)}}
	rec := f.do(http.MethodPost, "/v1/admin/import", "", auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	var resp importResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Pipeline.FromCache || resp.Import.Inserted != 0 || resp.Import.Skipped != 9 {
		t.Fatalf("re-import should skip everything: %+v", resp)
	}

	rec = f.do(http.MethodPost, "/v1/admin/import?rebuild=true", "", auth)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pipeline.FromCache || resp.Pipeline.Rows != 9 || resp.Pipeline.Stats.Duplicates != 1 {
		t.Fatalf("rebuild should recompute: %+v", resp.Pipeline)
	}

	if rec := f.do(http.MethodPost, "/v1/admin/import?rebuild=maybe", "", auth); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad rebuild flag: %d", rec.Code)
	}
	n, err := f.repo.Count(context.Background())
	if err != nil || n != 9 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

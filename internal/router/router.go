package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/catalog-insights/internal/handler"
	"github.com/iliyamo/catalog-insights/internal/middleware"
	"github.com/iliyamo/catalog-insights/internal/utils"
)

// RegisterRoutes registers routes that need neither Redis nor a token.
func RegisterRoutes(e *echo.Echo) {
	// load balancers and monitoring
	e.GET("/healthz", handler.Health)
}

// RegisterAnalysis registers the read routes.  The page cache and the rate
// limiter wrap them; both pass requests through when Redis is unavailable.
func RegisterAnalysis(e *echo.Echo, a *handler.AnalysisHandler, b *handler.BrowseHandler, mws ...echo.MiddlewareFunc) {
	e.GET("/", a.Page, mws...)
	e.GET("/v1/insights", a.Insights, mws...)
	e.GET("/v1/entries", b.SearchEntries, mws...)
	e.GET("/v1/entries/:show_id", b.GetEntry, mws...)
}

// RegisterAdmin registers the login route and the token-protected import.
// loginMws (the rate limiter) guard the password check.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, loginMws ...echo.MiddlewareFunc) {
	g := e.Group("/v1/admin")
	g.POST("/login", a.Login, loginMws...)

	g.POST("/import", a.Import, middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleAdmin))
}

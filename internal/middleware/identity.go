package middleware

import "github.com/labstack/echo/v4"

// Subject returns the authenticated subject stored by JWTAuth, or "anon"
// when the request carries no valid token.
func Subject(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}

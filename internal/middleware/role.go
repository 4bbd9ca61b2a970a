package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole admits requests whose JWT role is one of roles. Seating charts
// belong to teachers, so a student or unknown role gets 403 with the roles
// that would have been accepted. It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(r)] = struct{}{}
	}
	need := strings.Join(roles, " or ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[strings.ToUpper(role)]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":    "forbidden",
					"required": need,
				})
			}
			return next(c)
		}
	}
}

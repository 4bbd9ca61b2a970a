package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/classroom-seating/internal/handler"    // handlers implementing each endpoint
	"github.com/iliyamo/classroom-seating/internal/middleware" // JWT authentication, roles and rate limiting
	"github.com/iliyamo/classroom-seating/internal/model"      // role names
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// register, login and refresh issue tokens, so they run without JWTAuth
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token or a bearer and checks it itself
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret), teacherOnly())
}

// teacherOnly admits the roles allowed to edit seating charts.
func teacherOnly() echo.MiddlewareFunc {
	return middleware.RequireRole(model.RoleTeacher, model.RoleAdmin)
}

// RegisterSessions mounts the working-session API. arrangeLimit guards the
// arrange endpoint, the only one that runs the placement engine.
func RegisterSessions(e *echo.Echo, h *handler.SessionHandler, jwtSecret string, arrangeLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/sessions", middleware.JWTAuth(jwtSecret), teacherOnly())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/chart", h.Chart)

	g.PUT("/:id/dimensions", h.Resize)
	g.PUT("/:id/orientation", h.SetOrientation)
	g.PUT("/:id/roster", h.SetRoster)

	g.POST("/:id/seats/:index/lock", h.Lock)
	g.DELETE("/:id/seats/:index/lock", h.Unlock)
	g.POST("/:id/seats/:index/lock/toggle", h.ToggleLock)
	g.POST("/:id/seats/:index/disable", h.Disable)
	g.DELETE("/:id/seats/:index/disable", h.Enable)
	g.POST("/:id/seats/:index/disable/toggle", h.ToggleDisabled)
	g.DELETE("/:id/seats/:index", h.Unassign)
	g.POST("/:id/drop", h.Drop)

	if arrangeLimit != nil {
		g.POST("/:id/arrange", h.Arrange, arrangeLimit)
	} else {
		g.POST("/:id/arrange", h.Arrange)
	}
	g.POST("/:id/clear", h.Clear)

	g.GET("/:id/snapshot", h.ExportSnapshot)
	g.PUT("/:id/snapshot", h.ImportSnapshot)
	g.GET("/:id/ws", h.Watch)
}

// RegisterClassrooms mounts the saved-classroom API backed by MySQL.
func RegisterClassrooms(e *echo.Echo, h *handler.ClassroomHandler, jwtSecret string) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), teacherOnly()}

	e.POST("/v1/sessions/:id/classroom", h.Save, auth...)
	g := e.Group("/v1/classrooms", auth...)
	g.GET("", h.List)
	g.POST("/:id/sessions", h.Open)
	g.DELETE("/:id", h.Delete)
}

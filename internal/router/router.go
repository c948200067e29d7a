// Package router registers the HTTP routes of the timetable API.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-timetable/internal/handler"
	"github.com/iliyamo/conference-timetable/internal/middleware"
	"github.com/iliyamo/conference-timetable/internal/utils"
)

// RegisterRoutes registers the unauthenticated service routes.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterTimetable registers the timetable API under /v1.  Read routes
// accept guests; a bearer token, when sent, must be valid.  Scheduling
// routes need a MANAGER or ADMIN token, and the handler still checks that
// the user manages the event.  mws run after authentication on every
// route, so cache and rate limit keys see the viewer.
func RegisterTimetable(e *echo.Echo, h *handler.TimetableHandler, jwtSecret string, mws ...echo.MiddlewareFunc) {
	scope := middleware.TimetableScope(h.Repo)
	chain := func(auth ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		out := append(auth, mws...)
		return append(out, scope)
	}
	read := chain(middleware.OptionalJWT(jwtSecret))
	manage := chain(middleware.JWTAuth(jwtSecret), middleware.RequireRole(utils.RoleManager, utils.RoleAdmin))

	// both route sets share /v1, so middleware is attached per route
	g := e.Group("/v1")
	g.GET("/events/:id/timetable", h.GetTimetable, read...)
	g.GET("/events/:id/timetable/nested", h.GetNestedTimetable, read...)
	g.GET("/events/:id/timetable/export", h.GetExport, read...)
	g.GET("/categories/timetable", h.GetCategoryTimetable, read...)

	g.GET("/events/:id/timetable/next-start", h.GetNextStart, manage...)
	g.POST("/events/:id/timetable/breaks", h.ScheduleBreak, manage...)
	g.POST("/events/:id/timetable/contributions/:contrib_id", h.ScheduleContribution, manage...)
	g.PATCH("/events/:id/timetable/entries/:entry_id", h.RescheduleEntry, manage...)
	g.POST("/events/:id/timetable/entries/:entry_id/shift-following", h.ShiftFollowing, manage...)
	g.DELETE("/events/:id/contributions/:contrib_id", h.DeleteContribution, manage...)
}

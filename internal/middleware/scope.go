package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/conference-timetable/internal/timetable"
)

// TimetableScope attaches a fresh timetable.Scope over store to each
// request context, so the top-level and nested entry lookups run at most
// once per request.
func TimetableScope(store timetable.NestedStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := timetable.WithScope(req.Context(), timetable.NewScope(store))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// RequestID sets X-Request-Id to a random UUID unless the client sent one.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

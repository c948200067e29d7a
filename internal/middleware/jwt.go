// Package middleware holds the Echo middlewares of the timetable API:
// viewer extraction from JWTs, role checks, Redis caching and rate
// limiting, request ids and the per-request timetable scope.
package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/conference-timetable/internal/access"
)

// Context keys set by the JWT middlewares.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxViewer = "viewer"
)

var errNoToken = errors.New("missing bearer token")

// JWTAuth validates a Bearer token and stores the viewer in the context.
// Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, err := parseViewer(c, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			setViewer(c, v)
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for routes open to guests: a missing token yields
// the guest viewer, an invalid one is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v, err := parseViewer(c, secret)
			switch {
			case errors.Is(err, errNoToken):
				v = access.Viewer{}
			case err != nil:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			setViewer(c, v)
			return next(c)
		}
	}
}

// ViewerFrom returns the viewer stored by the JWT middlewares, or the guest.
func ViewerFrom(c echo.Context) access.Viewer {
	if v, ok := c.Get(ctxViewer).(access.Viewer); ok {
		return v
	}
	return access.Viewer{}
}

func setViewer(c echo.Context, v access.Viewer) {
	c.Set(ctxViewer, v)
	c.Set(ctxUserID, v.UserID)
	c.Set(ctxRole, v.Role)
}

func parseViewer(c echo.Context, secret string) (access.Viewer, error) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if auth == "" {
		return access.Viewer{}, errNoToken
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return access.Viewer{}, errors.New("missing bearer token")
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return access.Viewer{}, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return access.Viewer{}, errors.New("invalid claims")
	}
	id, ok := subject(claims["sub"])
	if !ok {
		return access.Viewer{}, errors.New("invalid subject")
	}
	role, _ := claims["role"].(string)
	return access.Viewer{UserID: id, Role: role}, nil
}

// subject accepts the numeric sub written by utils.NewAccessToken as well
// as a decimal string.
func subject(v any) (uint64, bool) {
	switch s := v.(type) {
	case float64:
		if s < 1 || s != float64(uint64(s)) {
			return 0, false
		}
		return uint64(s), true
	case string:
		n, err := strconv.ParseUint(s, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

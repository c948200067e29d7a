package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey identifies the viewer in cache and rate limit keys.  Guests share
// the "guest" key.
func userKey(c echo.Context) string {
	v := ViewerFrom(c)
	if v.IsGuest() {
		return "guest"
	}
	return strconv.FormatUint(v.UserID, 10)
}

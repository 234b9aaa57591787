// Package hotelctx stores the authenticated hotel identity on the request
// context.
package hotelctx

import (
	"github.com/labstack/echo/v4"

	"bikerental/util/jwt"
)

const key = "hotel_identity"

func Set(c echo.Context, id jwt.Identity) { c.Set(key, id) }

// From returns the identity placed by the auth middleware; ok is false on
// unauthenticated routes.
func From(c echo.Context) (jwt.Identity, bool) {
	id, ok := c.Get(key).(jwt.Identity)
	return id, ok
}

// HotelID is a shortcut for handlers that only need the scope id.
func HotelID(c echo.Context) int64 {
	id, _ := From(c)
	return id.HotelID
}

func IsAdmin(c echo.Context) bool {
	id, _ := From(c)
	return id.Role == jwt.RoleAdmin
}

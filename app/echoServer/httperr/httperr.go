// Package httperr translates service errors into JSON responses. Anything
// without a recognized kind becomes a 500 with a generic body.
package httperr

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/util/apperr"
)

func Respond(c echo.Context, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case apperr.KindBadInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case apperr.KindConflict:
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case apperr.KindUnavailable:
		return c.JSON(http.StatusConflict, echo.Map{
			"message":           err.Error(),
			"code":              string(apperr.KindUnavailable),
			"unavailable_bikes": apperr.BikesOf(err),
		})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

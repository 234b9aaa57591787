package overview

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/httperr"
	overviewsvc "bikerental/service/overview"
)

type Controller struct {
	Svc overviewsvc.Service
	Log *slog.Logger
}

// GET /api/overview
func (h *Controller) Get(c echo.Context) error {
	out, err := h.Svc.Get(c.Request().Context(), hotelctx.HotelID(c))
	if err != nil {
		h.Log.Error("overview", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

package settings

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/httperr"
	settingssvc "bikerental/service/settings"
)

type Controller struct {
	Svc settingssvc.Service
	Log *slog.Logger
}

// GET /api/settings
func (h *Controller) Get(c echo.Context) error {
	out, err := h.Svc.Get(c.Request().Context(), hotelctx.HotelID(c))
	if err != nil {
		h.Log.Error("settings", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

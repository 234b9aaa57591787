package maintenance

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/httperr"
	maintenancesvc "bikerental/service/maintenance"
)

type Controller struct {
	Svc maintenancesvc.Service
	Log *slog.Logger
}

// GET /api/maintenance/ooo/export
func (h *Controller) ExportCSV(c echo.Context) error {
	body, filename, err := h.Svc.ExportOutOfOrderCSV(c.Request().Context(), hotelctx.HotelID(c))
	if err != nil {
		h.Log.Error("maintenance export", "err", err)
		return httperr.Respond(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, "text/csv", body)
}

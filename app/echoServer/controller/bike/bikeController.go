package bike

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/httperr"
	"bikerental/model"
	bikesvc "bikerental/service/bike"
)

type Controller struct {
	Svc bikesvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/bikes?status=&search=
func (h *Controller) List(c echo.Context) error {
	var status *model.BikeStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := model.BikeStatus(raw)
		switch s {
		case model.BikeAvailable, model.BikeRented, model.BikeOutOfOrder:
			status = &s
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid status filter"})
		}
	}

	bikes, err := h.Svc.List(c.Request().Context(), hotelctx.HotelID(c), status, c.QueryParam("search"))
	if err != nil {
		h.Log.Error("bike list", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": bikes})
}

// GET /api/bikes/by-number/:bikeNumber
func (h *Controller) ByNumber(c echo.Context) error {
	number := c.Param("bikeNumber")
	b, err := h.Svc.FindByNumber(c.Request().Context(), hotelctx.HotelID(c), number)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// PATCH /api/bikes/:bikeId/ooo
func (h *Controller) MarkOutOfOrder(c echo.Context) error {
	bikeID, err := strconv.ParseInt(c.Param("bikeId"), 10, 64)
	if err != nil || bikeID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid bike id"})
	}

	var req markOOOReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}

	b, err := h.Svc.MarkOutOfOrder(c.Request().Context(), hotelctx.HotelID(c), bikeID, req.Note)
	if err != nil {
		h.Log.Error("bike mark ooo", "err", err, "bike_id", bikeID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// PATCH /api/bikes/:bikeId/available
func (h *Controller) MarkAvailable(c echo.Context) error {
	bikeID, err := strconv.ParseInt(c.Param("bikeId"), 10, 64)
	if err != nil || bikeID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid bike id"})
	}

	b, err := h.Svc.MarkAvailable(c.Request().Context(), hotelctx.HotelID(c), bikeID)
	if err != nil {
		h.Log.Error("bike mark available", "err", err, "bike_id", bikeID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/httperr"
	adminsvc "bikerental/service/admin"
)

type Controller struct {
	Svc adminsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// GET /api/admin/hotels
func (h *Controller) ListHotels(c echo.Context) error {
	hotels, err := h.Svc.ListHotels(c.Request().Context())
	if err != nil {
		h.Log.Error("admin list hotels", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": hotels})
}

// POST /api/admin/hotels
func (h *Controller) CreateHotel(c echo.Context) error {
	var req createHotelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.CreateHotel(c.Request().Context(), adminsvc.CreateHotelParams{
		Code:      req.Code,
		Name:      req.Name,
		Password:  req.Password,
		FleetSize: req.FleetSize,
		BikeType:  req.BikeType,
	})
	if err != nil {
		h.Log.Error("admin create hotel", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// POST /api/admin/hotels/:hotelId/reset-password
func (h *Controller) ResetPassword(c echo.Context) error {
	hotelID, err := strconv.ParseInt(c.Param("hotelId"), 10, 64)
	if err != nil || hotelID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid hotel id"})
	}

	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	if err := h.Svc.ResetPassword(c.Request().Context(), hotelID, req.Password); err != nil {
		h.Log.Error("admin reset password", "err", err, "hotel_id", hotelID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

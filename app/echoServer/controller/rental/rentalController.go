package rental

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/httperr"
	rs "bikerental/service/rental"
)

type Controller struct {
	Svc      rs.Service
	Contract rs.ContractRenderer
	V        *validator.Validate
	Log      *slog.Logger
}

// POST /api/rentals
func (h *Controller) Create(c echo.Context) error {
	var req createRentalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Create(c.Request().Context(), hotelctx.HotelID(c), rs.CreateParams{
		BikeNumbers:     req.BikeNumbers,
		RoomNumber:      req.RoomNumber,
		BedNumber:       req.BedNumber,
		DueAt:           req.DueAt,
		TncVersion:      req.TncVersion,
		SignatureBase64: req.Signature,
	})
	if err != nil {
		h.Log.Error("rental create", "err", err)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /api/rentals/:rentalId
func (h *Controller) Detail(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	out, err := h.Svc.GetDetail(c.Request().Context(), hotelctx.HotelID(c), rentalID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/rentals/:rentalId/signature
func (h *Controller) Signature(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	png, err := h.Contract.SignaturePNG(c.Request().Context(), hotelctx.HotelID(c), rentalID)
	if err != nil {
		return httperr.Respond(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// GET /api/rentals/:rentalId/contract
func (h *Controller) ContractHTML(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	page, err := h.Contract.ContractHTML(c.Request().Context(), hotelctx.HotelID(c), rentalID)
	if err != nil {
		h.Log.Error("rental contract", "err", err, "rental_id", rentalID)
		return httperr.Respond(c, err)
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// POST /api/rentals/:rentalId/items/:itemId/return
func (h *Controller) ReturnItem(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	out, err := h.Svc.ReturnItem(c.Request().Context(), hotelctx.HotelID(c), rentalID, itemID)
	if err != nil {
		h.Log.Error("rental return item", "err", err, "rental_id", rentalID, "item_id", itemID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/rentals/:rentalId/items/:itemId/undo-return
func (h *Controller) UndoReturn(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	out, err := h.Svc.UndoReturn(c.Request().Context(), hotelctx.HotelID(c), rentalID, itemID)
	if err != nil {
		h.Log.Error("rental undo return", "err", err, "rental_id", rentalID, "item_id", itemID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/rentals/:rentalId/items/:itemId/lost
func (h *Controller) MarkLost(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item id"})
	}

	var req markLostReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}

	out, err := h.Svc.MarkLost(c.Request().Context(), hotelctx.HotelID(c), rentalID, itemID, req.Reason)
	if err != nil {
		h.Log.Error("rental mark lost", "err", err, "rental_id", rentalID, "item_id", itemID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/rentals/:rentalId/return-selected
func (h *Controller) ReturnSelected(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	var req returnSelectedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.ReturnSelected(c.Request().Context(), hotelctx.HotelID(c), rentalID, req.ItemIDs)
	if err != nil {
		h.Log.Error("rental return selected", "err", err, "rental_id", rentalID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/rentals/:rentalId/return-all
func (h *Controller) ReturnAll(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	out, err := h.Svc.ReturnAll(c.Request().Context(), hotelctx.HotelID(c), rentalID)
	if err != nil {
		h.Log.Error("rental return all", "err", err, "rental_id", rentalID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/rentals/:rentalId/add-bike
func (h *Controller) AddBike(c echo.Context) error {
	rentalID, ok := pathID(c, "rentalId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid rental id"})
	}

	var req addBikeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.AddBike(c.Request().Context(), hotelctx.HotelID(c), rentalID, req.BikeNumber)
	if err != nil {
		h.Log.Error("rental add bike", "err", err, "rental_id", rentalID)
		return httperr.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func pathID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

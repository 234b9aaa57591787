package echoServer

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"bikerental/app/echoServer/controller/admin"
	"bikerental/app/echoServer/controller/auth"
	"bikerental/app/echoServer/controller/bike"
	"bikerental/app/echoServer/controller/maintenance"
	"bikerental/app/echoServer/controller/overview"
	"bikerental/app/echoServer/controller/rental"
	"bikerental/app/echoServer/controller/settings"
	"bikerental/app/echoServer/hotelctx"
	"bikerental/app/echoServer/metrics"
	ujwt "bikerental/util/jwt"
)

type C struct {
	Auth        *auth.Controller
	Bike        *bike.Controller
	Rental      *rental.Controller
	Overview    *overview.Controller
	Settings    *settings.Controller
	Maintenance *maintenance.Controller
	Admin       *admin.Controller
	JWTSecret   string
}

func Register(e *echo.Echo, c C) {
	e.JSONSerializer = jsonSerializer{}

	// Public
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.POST("/api/auth/login", c.Auth.Login)

	// Auth
	api := e.Group("/api")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(c.JWTSecret),
		TokenLookup: "header:Authorization:Bearer ",

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
	}))
	api.Use(identity)

	// Bikes
	api.GET("/bikes", c.Bike.List)
	api.GET("/bikes/by-number/:bikeNumber", c.Bike.ByNumber)
	api.PATCH("/bikes/:bikeId/ooo", c.Bike.MarkOutOfOrder)
	api.PATCH("/bikes/:bikeId/available", c.Bike.MarkAvailable)

	// Rentals
	api.POST("/rentals", c.Rental.Create)
	api.GET("/rentals/:rentalId", c.Rental.Detail)
	api.GET("/rentals/:rentalId/signature", c.Rental.Signature)
	api.GET("/rentals/:rentalId/contract", c.Rental.ContractHTML)
	api.POST("/rentals/:rentalId/items/:itemId/return", c.Rental.ReturnItem)
	api.POST("/rentals/:rentalId/items/:itemId/undo-return", c.Rental.UndoReturn)
	api.POST("/rentals/:rentalId/items/:itemId/lost", c.Rental.MarkLost)
	api.POST("/rentals/:rentalId/return-selected", c.Rental.ReturnSelected)
	api.POST("/rentals/:rentalId/return-all", c.Rental.ReturnAll)
	api.POST("/rentals/:rentalId/add-bike", c.Rental.AddBike)

	// Front desk
	api.GET("/overview", c.Overview.Get)
	api.GET("/settings", c.Settings.Get)
	api.GET("/maintenance/ooo/export", c.Maintenance.ExportCSV)

	// Operator endpoints
	adm := api.Group("/admin", adminOnly)
	adm.GET("/hotels", c.Admin.ListHotels)
	adm.POST("/hotels", c.Admin.CreateHotel)
	adm.POST("/hotels/:hotelId/reset-password", c.Admin.ResetPassword)
}

// identity converts verified claims into the hotel identity every handler
// scopes by.
func identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, ok := ctx.Get("user").(*jwt.Token)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		id, err := ujwt.IdentityFromClaims(claims)
		if err != nil {
			return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
		}
		hotelctx.Set(ctx, id)
		return next(ctx)
	}
}

func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !hotelctx.IsAdmin(ctx) {
			return ctx.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		}
		return next(ctx)
	}
}

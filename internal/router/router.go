// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merobus/merobus-backend/internal/handler"
	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/model"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth          *handler.AuthHandler
	Vehicles      *handler.VehicleHandler
	Routes        *handler.RouteHandler
	Bookings      *handler.BookingHandler
	Payments      *handler.PaymentHandler
	Trips         *handler.TripHandler
	Notifications *handler.NotificationHandler
	Live          *handler.LiveHandler
}

// Register wires all routes. Public browse endpoints need no token;
// everything that creates or mutates state sits behind JWTAuth, with
// driver-only operations additionally gated by role.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth, no session required.
	auth := e.Group("/v1/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// Public browse: vehicles, routes, timing stats, live buses.
	e.GET("/v1/vehicles", h.Vehicles.List)
	e.GET("/v1/vehicles/:id", h.Vehicles.Detail)
	e.GET("/v1/vehicles/:id/seats", h.Vehicles.Seats)
	e.GET("/v1/vehicles/:id/route", h.Routes.Get)
	e.GET("/v1/vehicles/:id/performance", h.Trips.Performance)
	e.GET("/v1/routes/search", h.Routes.Search)
	e.GET("/v1/buses/active", h.Routes.ActiveBuses)

	// Websocket endpoint authenticates its own token query param.
	e.GET("/v1/ws", h.Live.Serve)

	// Any authenticated user.
	user := e.Group("/v1")
	user.Use(middleware.JWTAuth(jwtSecret))
	user.GET("/me", h.Auth.Me)
	user.POST("/auth/logout", h.Auth.Logout)
	user.GET("/notifications", h.Notifications.List)
	user.GET("/bookings/:id", h.Bookings.Get)

	// Rider operations.
	rider := e.Group("/v1")
	rider.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleRider))
	rider.POST("/bookings", h.Bookings.Create)
	rider.GET("/bookings", h.Bookings.ListMine)
	rider.DELETE("/bookings/:id", h.Bookings.Cancel)
	rider.POST("/payments/initiate", h.Payments.Initiate)

	// Khalti redirects the rider's browser here; no JWT on the redirect.
	e.GET("/v1/payments/callback", h.Payments.Callback)

	// Driver operations.
	driver := e.Group("/v1")
	driver.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleDriver))
	driver.POST("/vehicles", h.Vehicles.Register)
	driver.POST("/vehicles/:id/route", h.Routes.Create)
	driver.GET("/vehicles/:id/bookings", h.Bookings.ListByVehicle)
	driver.POST("/vehicles/:id/trip/start", h.Trips.Start)
	driver.POST("/vehicles/:id/trip/end", h.Trips.End)
}

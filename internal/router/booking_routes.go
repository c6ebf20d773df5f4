package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/handler"
	"github.com/cinehold/reservation-service/internal/middleware"
)

// RegisterBookings wires the booking lifecycle and showtime-seat
// snapshot routes of the core route table. The snapshot endpoint is
// public; every other booking route requires a valid token from either
// role. Gate verification is restricted to OWNER, the closest role this
// system has to dedicated staff.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	e.GET("/v1/showtimes/:id/seats", h.ShowtimeSeats)

	user := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	user.POST("/bookings", h.CreateBooking)
	user.GET("/bookings", h.ListBookings)
	user.GET("/bookings/:id", h.GetBooking)
	user.GET("/bookings/code/:code", h.GetBookingByCode)
	user.PATCH("/bookings/:id/cancel", h.CancelBooking)
	user.POST("/bookings/:id/extend", h.ExtendBooking)
	user.GET("/bookings/:id/qr", h.BookingQR)

	staff := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole("OWNER"))
	staff.POST("/bookings/verify-qr", h.VerifyQR)
}

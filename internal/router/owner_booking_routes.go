package router

// This file registers owner-specific routes for managing bookings. The
// routes defined here allow owners to list, view and cancel bookings on
// showtimes that belong to their halls. They are separate from the
// generic owner routes to keep concerns isolated.

import (
    "github.com/cinehold/reservation-service/internal/handler"
    "github.com/cinehold/reservation-service/internal/middleware"
    "github.com/labstack/echo/v4"
)

// RegisterOwnerBookings registers routes that allow owners to manage
// bookings. All routes are mounted under /v1 and require a JWT token as
// well as the OWNER role. The provided handler supplies the business
// logic for listing, retrieving and cancelling bookings.
func RegisterOwnerBookings(e *echo.Echo, h *handler.OwnerBookingHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("OWNER"),
    )
    // List all bookings for a specific showtime
    g.GET("/showtimes/:id/bookings", h.ListShowtimeBookings)
    // Retrieve a single booking (owner perspective)
    g.GET("/owner/bookings/:id", h.GetOwnerBooking)
    // Cancel a booking before the showtime starts (owner override)
    g.DELETE("/owner/bookings/:id", h.CancelOwnerBooking)
}

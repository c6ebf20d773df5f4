package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/handler"
)

// RegisterPublic wires the unauthenticated browse/search surface:
// cinemas, halls, showtimes and full-text showtime search.
func RegisterPublic(e *echo.Echo, h *handler.PublicHandler) {
	g := e.Group("/v1")
	g.GET("/cinemas", h.GetPublicCinemas)
	g.GET("/cinemas/:id/halls", h.GetPublicHallsByCinema)
	g.GET("/halls/:id/showtimes", h.GetPublicShowsByHall)
	g.GET("/showtimes/:id", h.GetPublicShow)
	g.GET("/showtimes/search", h.SearchShows)
}

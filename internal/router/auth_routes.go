package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/handler"
	"github.com/cinehold/reservation-service/internal/middleware"
)

// RegisterAuth wires registration/login/token-refresh and the two
// protected account endpoints.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/refresh-access", h.RefreshAccess)
	g.POST("/logout", h.Logout)

	protected := e.Group("/v1/auth", middleware.JWTAuth(jwtSecret))
	protected.GET("/me", h.Me)
}

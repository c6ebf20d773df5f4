package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/handler"
	"github.com/cinehold/reservation-service/internal/middleware"
)

// RegisterPayments wires the intent-creation route (authenticated) and
// the two unauthenticated gateway callback routes per configured
// gateway. Echo cannot match a literal suffix glued onto a param
// segment (`{gateway}-return`), so each configured gateway gets its own
// concrete route with the gateway name injected via closure.
func RegisterPayments(e *echo.Echo, h *handler.PaymentHandler, jwtSecret string, gateways []string) {
	user := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	user.POST("/payments/:gateway/create", h.CreateIntent)

	for _, gw := range gateways {
		gw := gw
		e.GET("/v1/payments/"+gw+"-return", withGateway(gw, h.Return))
		e.POST("/v1/payments/"+gw+"-ipn", withGateway(gw, h.Notify))
	}
}

func withGateway(name string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetParamNames("gateway")
		c.SetParamValues(name)
		return next(c)
	}
}

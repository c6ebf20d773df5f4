package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/payment"
	"github.com/cinehold/reservation-service/internal/repository"
)

// PaymentHandler exposes the gateway-facing payment routes: intent
// creation on the authenticated side, and the two unauthenticated
// callback endpoints the gateway itself calls.
type PaymentHandler struct {
	Coordinator *payment.Coordinator
	FrontendURL string
}

// NewPaymentHandler constructs a PaymentHandler and panics if its
// Coordinator is nil.
func NewPaymentHandler(coordinator *payment.Coordinator, frontendURL string) *PaymentHandler {
	if coordinator == nil {
		panic("nil coordinator passed to NewPaymentHandler")
	}
	return &PaymentHandler{Coordinator: coordinator, FrontendURL: frontendURL}
}

type createIntentReq struct {
	BookingID uint64 `json:"booking_id"`
}

// CreateIntent handles POST /payments/{gateway}/create.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	method := c.Param("gateway")
	var req createIntentReq
	if err := c.Bind(&req); err != nil || req.BookingID == 0 {
		return httpError(http.StatusBadRequest, "booking_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, redirectURL, err := h.Coordinator.CreateIntent(ctx, req.BookingID, method, c.RealIP())
	if err != nil {
		return paymentError(err)
	}
	_ = userID // CreateIntent does not check that userID owns the booking
	return c.JSON(http.StatusCreated, echo.Map{
		"payment_id":   p.ID,
		"redirect_url": redirectURL,
	})
}

// Return handles GET /payments/{gateway}-return: the user-agent
// redirect leg. It resolves the callback and redirects the browser to a
// frontend success/failure page.
func (h *PaymentHandler) Return(c echo.Context) error {
	method := c.Param("gateway")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	resp, err := h.Coordinator.HandleCallback(ctx, payment.SourceReturn, method, c.QueryParams())
	if err != nil {
		return c.Redirect(http.StatusFound, h.FrontendURL+"/payment/failure?reason="+errorCode(err))
	}
	if resp.Outcome == payment.OutcomeSuccess {
		return c.Redirect(http.StatusFound, h.FrontendURL+"/payment/success?bookingId="+strconv.FormatUint(resp.BookingID, 10))
	}
	return c.Redirect(http.StatusFound, h.FrontendURL+"/payment/failure?bookingId="+strconv.FormatUint(resp.BookingID, 10))
}

// Notify handles POST /payments/{gateway}-ipn: the server-to-server
// notification leg. It returns the stylized acknowledgement body the
// gateway expects rather than a redirect.
func (h *PaymentHandler) Notify(c echo.Context) error {
	method := c.Param("gateway")
	if err := c.Request().ParseForm(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"RspCode": "99", "Message": "invalid request"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	params := c.Request().Form
	if len(params) == 0 {
		params = c.QueryParams()
	}

	resp, err := h.Coordinator.HandleCallback(ctx, payment.SourceNotify, method, params)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.JSON(http.StatusOK, echo.Map{"RspCode": "97", "Message": "invalid signature"})
		}
		if errors.Is(err, payment.ErrUnknownOrder) {
			return c.JSON(http.StatusOK, echo.Map{"RspCode": "01", "Message": "order not found"})
		}
		return c.JSON(http.StatusOK, echo.Map{"RspCode": "99", "Message": "unknown error"})
	}
	if resp.Outcome == payment.OutcomeSuccess {
		return c.JSON(http.StatusOK, echo.Map{"RspCode": "00", "Message": "confirmed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"RspCode": "00", "Message": "acknowledged"})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, payment.ErrUnknownOrder):
		return "unknown_order"
	default:
		return "error"
	}
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return httpError(http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrInvalidTransition):
		return httpError(http.StatusConflict, "booking is not pending")
	case errors.Is(err, payment.ErrAlreadyPaid):
		return httpError(http.StatusConflict, "booking already paid")
	case errors.Is(err, payment.ErrConcurrentIntent):
		return httpError(http.StatusConflict, "concurrent payment intent, retry")
	default:
		return httpError(http.StatusInternalServerError, "internal error")
	}
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/model"
	"github.com/cinehold/reservation-service/internal/qr"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
)

// BookingHandler exposes the booking lifecycle and showtime-seat
// snapshot endpoints of the core route table.
type BookingHandler struct {
	Engine   *booking.Engine
	Bookings *repository.BookingRepo
	Seats    *seatstore.Store
}

// NewBookingHandler constructs a BookingHandler and panics if any
// dependency is nil.
func NewBookingHandler(engine *booking.Engine, bookings *repository.BookingRepo, seats *seatstore.Store) *BookingHandler {
	if engine == nil || bookings == nil || seats == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Engine: engine, Bookings: bookings, Seats: seats}
}

type createBookingReq struct {
	ShowtimeID uint64   `json:"showtime_id"`
	Seats      []string `json:"seats"`
}

type bookingResp struct {
	ID              uint64    `json:"id"`
	BookingCode     string    `json:"booking_code"`
	UserID          uint64    `json:"user_id"`
	ShowtimeID      uint64    `json:"showtime_id"`
	Seats           []string  `json:"seats"`
	TotalPriceCents uint32    `json:"total_price_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:              b.ID,
		BookingCode:     b.BookingCode,
		UserID:          b.UserID,
		ShowtimeID:      b.ShowtimeID,
		Seats:           b.Seats,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
	}
}

// CreateBooking handles POST /bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return httpError(http.StatusBadRequest, "invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	b, err := h.Engine.Create(ctx, userID, req.ShowtimeID, req.Seats)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// ListBookings handles GET /bookings, returning the caller's own
// bookings. Owner-wide visibility is a separate concern, served per
// showtime by OwnerBookingHandler.ListShowtimeBookings.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return httpError(http.StatusInternalServerError, "list bookings failed")
	}
	out := make([]bookingResp, 0, len(items))
	for i := range items {
		out = append(out, toBookingResp(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// GetBooking handles GET /bookings/{id}.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return httpError(http.StatusBadRequest, "invalid booking id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httpError(http.StatusNotFound, "booking not found")
		}
		return httpError(http.StatusInternalServerError, "load booking failed")
	}
	if b.UserID != userID {
		role, _ := c.Get("role").(string)
		if role != "OWNER" {
			return httpError(http.StatusForbidden, "forbidden")
		}
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// GetBookingByCode handles GET /bookings/code/{code}.
func (h *BookingHandler) GetBookingByCode(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	code := c.Param("code")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httpError(http.StatusNotFound, "booking not found")
		}
		return httpError(http.StatusInternalServerError, "load booking failed")
	}
	if b.UserID != userID {
		role, _ := c.Get("role").(string)
		if role != "OWNER" {
			return httpError(http.StatusForbidden, "forbidden")
		}
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// CancelBooking handles PATCH /bookings/{id}/cancel.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return httpError(http.StatusBadRequest, "invalid booking id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	existing, err := h.Bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httpError(http.StatusNotFound, "booking not found")
		}
		return httpError(http.StatusInternalServerError, "load booking failed")
	}
	if existing.UserID != userID {
		return httpError(http.StatusForbidden, "forbidden")
	}
	if existing.Status != model.BookingPending {
		return httpError(http.StatusConflict, "booking is not pending")
	}

	b, err := h.Engine.Cancel(ctx, id)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// ExtendBooking handles POST /bookings/{id}/extend, pushing out the
// hold window on a PENDING booking the caller owns.
func (h *BookingHandler) ExtendBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return httpError(http.StatusBadRequest, "invalid booking id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Engine.Extend(ctx, id, userID); err != nil {
		return bookingError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BookingQR handles GET /bookings/{id}/qr, returning the PNG image the
// customer displays at the gate. Only available once CONFIRMED.
func (h *BookingHandler) BookingQR(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return httpError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return httpError(http.StatusBadRequest, "invalid booking id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httpError(http.StatusNotFound, "booking not found")
		}
		return httpError(http.StatusInternalServerError, "load booking failed")
	}
	if b.UserID != userID {
		return httpError(http.StatusForbidden, "forbidden")
	}
	if b.Status != model.BookingConfirmed {
		return httpError(http.StatusConflict, "booking is not confirmed")
	}

	png, err := qr.RenderPNG(qr.PayloadFor(b))
	if err != nil {
		return httpError(http.StatusInternalServerError, "render qr failed")
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// VerifyQR handles POST /bookings/verify-qr, the gate-scan endpoint
// used by staff. It decodes the scanned payload, rejects anything older
// than qr.MaxAge, and cross-checks it against the live booking.
func (h *BookingHandler) VerifyQR(c echo.Context) error {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.Bind(&req); err != nil || req.Payload == "" {
		return httpError(http.StatusBadRequest, "payload required")
	}

	p, err := qr.Decode([]byte(req.Payload))
	if err != nil {
		return httpError(http.StatusBadRequest, "malformed qr payload")
	}
	if err := p.CheckFresh(time.Now().UTC()); err != nil {
		return httpError(http.StatusBadRequest, "qr payload expired")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.Get(ctx, p.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return httpError(http.StatusNotFound, "booking not found")
		}
		return httpError(http.StatusInternalServerError, "load booking failed")
	}
	if b.BookingCode != p.BookingCode || b.Status != model.BookingConfirmed {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"error": "booking not valid for entry", "valid": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "booking": toBookingResp(b)})
}

// ShowtimeSeats handles GET /showtimes/{id}/seats: a public snapshot of
// booked/held/available seats for one showtime.
func (h *BookingHandler) ShowtimeSeats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return httpError(http.StatusBadRequest, "invalid showtime id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.Seats.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, seatstore.ErrShowtimeNotFound) {
			return httpError(http.StatusNotFound, "showtime not found")
		}
		return httpError(http.StatusInternalServerError, "load snapshot failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"showtime_id":     snap.ShowtimeID,
		"capacity":        snap.Capacity,
		"booked_seats":    orEmpty(snap.BookedSeats),
		"held_seats":      orEmpty(snap.HeldSeats),
		"available_count": snap.AvailableCount,
	})
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// bookingError maps the booking package's sentinel errors to HTTP
// status codes and a JSON body. Seat conflicts additionally name the
// offending seats.
func bookingError(err error) error {
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"error": "seats unavailable", "seats": conflict.Seats})
	}
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return httpError(http.StatusNotFound, "not found")
	case errors.Is(err, booking.ErrValidation):
		return httpError(http.StatusBadRequest, "invalid request")
	case errors.Is(err, booking.ErrForbidden):
		return httpError(http.StatusForbidden, "forbidden")
	case errors.Is(err, booking.ErrInvalidTransition):
		return httpError(http.StatusConflict, "invalid state transition")
	case errors.Is(err, booking.ErrCodeExhausted):
		return httpError(http.StatusServiceUnavailable, "could not allocate booking code, retry")
	default:
		return httpError(http.StatusInternalServerError, "internal error")
	}
}

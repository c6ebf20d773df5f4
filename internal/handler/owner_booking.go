package handler

// This file defines HTTP handlers for owners to manage bookings. Owners
// can view and cancel bookings for showtimes that belong to their own
// halls. The handlers ensure that the requesting user has the OWNER role
// via middleware and that the booking or showtime belongs to the owner.
// Cancellation defers to booking.Engine.Cancel / payment.Coordinator.Refund,
// the same state machine the customer-facing handlers drive, so an
// owner-initiated cancel reverses a COMPLETED payment exactly like any
// other refund path instead of reimplementing the transition.

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/cinehold/reservation-service/internal/booking"
    "github.com/cinehold/reservation-service/internal/model"
    "github.com/cinehold/reservation-service/internal/payment"
    "github.com/cinehold/reservation-service/internal/repository"
    "github.com/labstack/echo/v4"
)

// OwnerBookingHandler groups repositories and the booking/payment
// collaborators needed to list, view and cancel bookings from the
// perspective of a hall owner.
type OwnerBookingHandler struct {
    BookingRepo  *repository.BookingRepo  // access to bookings
    ShowtimeRepo *repository.ShowtimeRepo // access to showtimes for ownership checks
    Engine       *booking.Engine          // drives the PENDING cancel path
    Payments     *payment.Coordinator     // drives the CONFIRMED refund path
}

// NewOwnerBookingHandler constructs an OwnerBookingHandler with the
// required repositories and collaborators. All dependencies must be
// non-nil.
func NewOwnerBookingHandler(bookingRepo *repository.BookingRepo, showtimeRepo *repository.ShowtimeRepo, engine *booking.Engine, payments *payment.Coordinator) *OwnerBookingHandler {
    if bookingRepo == nil || showtimeRepo == nil || engine == nil || payments == nil {
        panic("nil dependency passed to NewOwnerBookingHandler")
    }
    return &OwnerBookingHandler{
        BookingRepo:  bookingRepo,
        ShowtimeRepo: showtimeRepo,
        Engine:       engine,
        Payments:     payments,
    }
}

// ListShowtimeBookings handles GET /v1/showtimes/:id/bookings. It returns
// every booking for a showtime if the showtime belongs to the
// authenticated owner. An empty array is returned when no bookings exist.
func (h *OwnerBookingHandler) ListShowtimeBookings(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return httpError(http.StatusUnauthorized, "unauthorized")
    }
    showtimeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || showtimeID == 0 {
        return httpError(http.StatusBadRequest, "invalid showtime id")
    }
    ctx := c.Request().Context()
    items, err := h.BookingRepo.ListByShowtimeForOwner(ctx, showtimeID, ownerID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return httpError(http.StatusNotFound, "showtime not found")
        }
        if errors.Is(err, repository.ErrForbidden) {
            return httpError(http.StatusForbidden, "forbidden")
        }
        return httpError(http.StatusInternalServerError, "failed to load bookings")
    }
    return c.JSON(http.StatusOK, echo.Map{
        "items": items,
        "count": len(items),
    })
}

// GetOwnerBooking handles GET /v1/owner/bookings/:id. It returns the
// details of a booking when the underlying showtime is owned by the
// authenticated owner.
func (h *OwnerBookingHandler) GetOwnerBooking(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return httpError(http.StatusUnauthorized, "unauthorized")
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return httpError(http.StatusBadRequest, "invalid booking id")
    }
    ctx := c.Request().Context()
    b, err := h.BookingRepo.GetForOwner(ctx, bookingID, ownerID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return httpError(http.StatusNotFound, "booking not found")
        }
        if errors.Is(err, repository.ErrForbidden) {
            return httpError(http.StatusForbidden, "forbidden")
        }
        return httpError(http.StatusInternalServerError, "failed to fetch booking")
    }
    return c.JSON(http.StatusOK, echo.Map{"item": b})
}

// CancelOwnerBooking handles DELETE /v1/owner/bookings/:id. It cancels a
// booking on behalf of an owner if the booking's showtime belongs to the
// owner and has not started yet. Only a PENDING or CONFIRMED booking can
// be cancelled this way: a PENDING booking is cancelled through
// booking.Engine.Cancel directly, while a CONFIRMED booking is cancelled
// by refunding its settled payment through payment.Coordinator.Refund,
// which itself drives the same Engine.Cancel transition afterward.
func (h *OwnerBookingHandler) CancelOwnerBooking(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return httpError(http.StatusUnauthorized, "unauthorized")
    }
    bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || bookingID == 0 {
        return httpError(http.StatusBadRequest, "invalid booking id")
    }
    ctx := c.Request().Context()
    b, err := h.BookingRepo.GetForOwner(ctx, bookingID, ownerID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return httpError(http.StatusNotFound, "booking not found")
        }
        if errors.Is(err, repository.ErrForbidden) {
            return httpError(http.StatusForbidden, "forbidden")
        }
        return httpError(http.StatusInternalServerError, "failed to load booking")
    }
    if b.Status != model.BookingPending && b.Status != model.BookingConfirmed {
        return httpError(http.StatusConflict, "booking already cancelled")
    }
    st, err := h.ShowtimeRepo.GetByID(ctx, b.ShowtimeID)
    if err != nil {
        return httpError(http.StatusInternalServerError, "failed to load showtime")
    }
    startTime, err := time.Parse("2006-01-02 15:04:05", st.StartsAt)
    if err == nil && !startTime.After(time.Now().UTC()) {
        return httpError(http.StatusConflict, "showtime already started")
    }

    if b.Status == model.BookingConfirmed {
        if b.PaymentID == nil {
            return httpError(http.StatusInternalServerError, "confirmed booking has no payment on record")
        }
        if _, err := h.Payments.Refund(ctx, *b.PaymentID); err != nil {
            return ownerCancelError(err)
        }
        return c.NoContent(http.StatusNoContent)
    }

    if _, err := h.Engine.Cancel(ctx, bookingID); err != nil {
        return ownerCancelError(err)
    }
    return c.NoContent(http.StatusNoContent)
}

// ownerCancelError maps booking.Engine/payment.Coordinator failures
// surfaced through the owner cancel path to HTTP status codes.
func ownerCancelError(err error) error {
    switch {
    case errors.Is(err, booking.ErrNotFound), errors.Is(err, payment.ErrNotFound):
        return httpError(http.StatusNotFound, "not found")
    case errors.Is(err, booking.ErrInvalidTransition):
        return httpError(http.StatusConflict, "invalid state transition")
    default:
        return httpError(http.StatusInternalServerError, "failed to cancel booking")
    }
}

// Package booking owns the booking-lifecycle state machine and its
// atomic coupling to seat state: creating a PENDING
// booking holds seats, confirming promotes holds to booked, and
// cancelling or expiring releases them. Every transition composes with
// seatstore.Store's primitives inside one SQL transaction so a reader
// never observes a booking without its matching seat state or vice
// versa.
package booking

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/cinehold/reservation-service/internal/model"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
)

// ConfirmationNotifier is told about every successful Confirm. The one
// implementation, qr.Notifier, publishes a BookingConfirmed event; it
// sends no receipt email and stores no QR image (QR codes are rendered
// on request by the HTTP layer). Its errors are logged, never
// propagated: a downstream notification failure must not reverse a
// confirmation that has already committed.
type ConfirmationNotifier interface {
	NotifyBookingConfirmed(ctx context.Context, b *model.Booking) error
}

// SeatEventPublisher publishes the SeatStateChanged(showtimeId) event
// after any primitive that mutates seat state. Delivery is best-effort;
// correctness never depends on it.
type SeatEventPublisher interface {
	PublishSeatStateChanged(ctx context.Context, showtimeID uint64) error
}

// Engine implements the booking-lifecycle contract.
type Engine struct {
	bookings  *repository.BookingRepo
	showtimes *repository.ShowtimeRepo
	seats     *seatstore.Store
	holdTTL   time.Duration
	notifier  ConfirmationNotifier
	events    SeatEventPublisher
}

// New constructs an Engine. notifier and events may be nil; Engine treats
// both as no-ops in that case.
func New(bookings *repository.BookingRepo, showtimes *repository.ShowtimeRepo, seats *seatstore.Store, holdTTL time.Duration, notifier ConfirmationNotifier, events SeatEventPublisher) *Engine {
	return &Engine{
		bookings:  bookings,
		showtimes: showtimes,
		seats:     seats,
		holdTTL:   holdTTL,
		notifier:  notifier,
		events:    events,
	}
}

// Create validates the requested seats, computes the frozen total price
// against the showtime's current price, generates a unique booking
// code, persists a PENDING booking and acquires holds for every seat, all
// within a single transaction. If any seat is unavailable the entire
// transaction is rolled back, leaving no booking row and no hold
// attributable to the caller.
func (e *Engine) Create(ctx context.Context, userID, showtimeID uint64, seats []string) (*model.Booking, error) {
	if err := validateSeats(seats); err != nil {
		return nil, err
	}

	st, err := e.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uint32(len(seats)) > st.Capacity {
		return nil, ErrValidation
	}
	totalPrice := uint32(len(seats)) * st.PriceCents

	tx, err := e.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	code, err := e.generateCodeTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	b := &model.Booking{
		BookingCode:     code,
		UserID:          userID,
		ShowtimeID:      showtimeID,
		Seats:           seats,
		TotalPriceCents: totalPrice,
		Status:          model.BookingPending,
	}
	if err := e.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}

	result, err := e.seats.TryHold(ctx, tx, showtimeID, seats, b.ID, userID, e.holdTTL)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		// Rolling back the transaction discards the booking row we just
		// inserted, so the hold attempt leaves no residue either way.
		return nil, &ConflictError{Seats: result.ConflictingSeats}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	e.publishSeatStateChanged(ctx, showtimeID)
	return b, nil
}

// Confirm promotes a PENDING booking to CONFIRMED and its held seats to
// BOOKED. Called only by PaymentCoordinator after a verified callback.
// Calling it again on an already-CONFIRMED booking is a no-op that
// returns the existing booking. Calling it on a CANCELLED booking is
// ErrInvalidTransition.
func (e *Engine) Confirm(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	tx, err := e.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := e.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.Status == model.BookingConfirmed {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return b, nil
	}
	if b.Status != model.BookingPending {
		return nil, ErrInvalidTransition
	}

	ok, err := e.bookings.CompareAndSetStatusTx(ctx, tx, bookingID, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}
	if err := e.seats.Promote(ctx, tx, b.ShowtimeID, b.Seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.Status = model.BookingConfirmed

	e.publishSeatStateChanged(ctx, b.ShowtimeID)
	e.notifyConfirmed(ctx, b)
	return b, nil
}

// Cancel transitions a booking to CANCELLED from PENDING (pre-payment
// abandonment) or, administratively, from CONFIRMED (refund path, which
// additionally reverses the seat promotion). Calling it on an
// already-CANCELLED booking is a no-op. A missing showtime is
// tolerated: the booking still transitions, it just has no seats left to
// release.
func (e *Engine) Cancel(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	tx, err := e.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := e.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if b.Status == model.BookingCancelled {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return b, nil
	}
	wasConfirmed := b.Status == model.BookingConfirmed

	ok, err := e.bookings.CompareAndSetStatusTx(ctx, tx, bookingID, b.Status, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidTransition
	}

	if _, err := e.showtimes.GetByID(ctx, b.ShowtimeID); err != nil && errors.Is(err, repository.ErrShowtimeNotFound) {
		log.Printf("booking: showtime %d missing for cancel of booking %d, skipping seat release", b.ShowtimeID, bookingID)
	} else if wasConfirmed {
		if err := e.seats.ReversePromote(ctx, tx, b.ShowtimeID, b.Seats); err != nil {
			return nil, err
		}
	} else {
		if err := e.seats.Release(ctx, tx, b.ShowtimeID, b.Seats, bookingID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	b.Status = model.BookingCancelled

	e.publishSeatStateChanged(ctx, b.ShowtimeID)
	return b, nil
}

// Extend resets the expiry of every hold belonging to bookingID to
// now + holdWindow. Permitted only by the booking's owner and only while
// it is PENDING.
func (e *Engine) Extend(ctx context.Context, bookingID, userID uint64) error {
	tx, err := e.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := e.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	if b.Status != model.BookingPending {
		return ErrInvalidTransition
	}
	newExpiry := time.Now().UTC().Add(e.holdTTL)
	if err := e.seats.ExtendHolds(ctx, tx, bookingID, newExpiry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (e *Engine) publishSeatStateChanged(ctx context.Context, showtimeID uint64) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishSeatStateChanged(ctx, showtimeID); err != nil {
		log.Printf("booking: failed to publish seat state change for showtime %d: %v", showtimeID, err)
	}
}

func (e *Engine) notifyConfirmed(ctx context.Context, b *model.Booking) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyBookingConfirmed(ctx, b); err != nil {
		log.Printf("booking: confirmation notification failed for booking %d: %v", b.ID, err)
	}
}

func validateSeats(seats []string) error {
	if len(seats) == 0 {
		return ErrValidation
	}
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if s == "" {
			return ErrValidation
		}
		if _, dup := seen[s]; dup {
			return ErrValidation
		}
		seen[s] = struct{}{}
	}
	return nil
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomBookingCode draws 8 uppercase alphanumerics via rejection
// sampling against crypto/rand.
func randomBookingCode() (string, error) {
	buf := make([]byte, 8)
	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// generateCodeTx draws a booking code and retries up to 3 times if it
// collides with the unique index.
func (e *Engine) generateCodeTx(ctx context.Context, tx *sql.Tx) (string, error) {
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomBookingCode()
		if err != nil {
			return "", err
		}
		exists, err := e.bookings.CodeExistsTx(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

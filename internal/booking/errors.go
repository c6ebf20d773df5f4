package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the booking or showtime referenced by a
	// BookingEngine call does not exist.
	ErrNotFound = errors.New("not-found")
	// ErrValidation indicates malformed input: empty or duplicate seats,
	// or a seat count exceeding the showtime's capacity.
	ErrValidation = errors.New("validation")
	// ErrInvalidTransition indicates an attempted state-machine move that
	// the current booking/payment status does not permit (e.g.
	// confirming a cancelled booking).
	ErrInvalidTransition = errors.New("invalid-transition")
	// ErrForbidden indicates the caller does not own the booking it is
	// trying to mutate.
	ErrForbidden = errors.New("forbidden")
	// ErrCodeExhausted indicates booking-code generation collided against
	// the unique index on every retry.
	ErrCodeExhausted = errors.New("booking code generation exhausted retries")
)

// ConflictError reports that one or more requested seats were not FREE at
// the moment TryHold ran. The caller (HTTP handler) renders this as a 409
// naming the offending seats.
type ConflictError struct {
	Seats []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: seats unavailable: %v", e.Seats)
}

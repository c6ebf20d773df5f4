package model

import "time"

// BookingStatus is the lifecycle of a Booking: PENDING while seats are
// held and payment has not yet settled, CONFIRMED once the payment
// coordinator observes a successful payment, CANCELLED once the holder
// cancels or the expiry sweeper reclaims an expired PENDING booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking aggregates the seats a user selected for one showtime under a
// single transaction. Seats is frozen at creation time: it is never
// appended to or trimmed, only the booking's status and PaymentID
// change after creation.
//
// Fields:
//
//	ID               – primary key identifier.
//	BookingCode      – short, unique, user-facing reference (e.g. printed on a ticket/QR).
//	UserID           – user who made the booking.
//	ShowtimeID       – showtime being booked.
//	Seats            – ordered, immutable seat labels captured at creation.
//	TotalPriceCents  – seat count times the showtime's price, frozen at creation.
//	Status           – PENDING, CONFIRMED or CANCELLED.
//	PaymentID        – the settling payment, set once one is created (nullable).
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last status-change timestamp.
type Booking struct {
	ID              uint64
	BookingCode     string
	UserID          uint64
	ShowtimeID      uint64
	Seats           []string
	TotalPriceCents uint32
	Status          BookingStatus
	PaymentID       *uint64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentStatus is the lifecycle of a Payment row. PENDING is the only
// state in which the compare-and-set confirmation update may succeed;
// COMPLETED/FAILED/REFUNDED are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Payment is one attempt to settle a Booking through an external
// gateway. ProviderOrderRef is the value sent to the gateway and echoed
// back on callback; ProviderTxnID is the gateway's own identifier for a
// completed transaction, recorded once known.
//
// Fields:
//
//	ID                – primary key identifier.
//	BookingID         – the booking this payment settles.
//	AmountCents       – amount charged, must equal the booking's total.
//	Method            – gateway key, e.g. "vnpay" or "wallet".
//	ProviderOrderRef  – order reference sent to the gateway ("{bookingId}-{unixMillis}").
//	ProviderTxnID     – gateway transaction id, set on callback (nullable).
//	Status            – PENDING, COMPLETED, FAILED or REFUNDED.
//	PaidAt            – when the gateway confirmed payment (nullable).
//	CreatedAt         – creation timestamp.
//	UpdatedAt         – last status-change timestamp.
type Payment struct {
	ID               uint64
	BookingID        uint64
	AmountCents      uint32
	Method           string
	ProviderOrderRef string
	ProviderTxnID    *string
	Status           PaymentStatus
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

package model

import "time"

// SeatHold represents a temporary, TTL-bounded reservation of one seat
// tied to a single PENDING booking. While a booking is PENDING, exactly
// its seats appear here with that booking as holder.
//
// Fields:
//
//	ID              – primary key identifier.
//	ShowtimeID      – showtime the seat belongs to.
//	SeatLabel       – opaque seat identifier, meaningful only within ShowtimeID.
//	HolderBookingID – the PENDING booking that owns this hold.
//	HolderUserID    – the user who created the booking (denormalized for fast lookup).
//	ExpiresAt       – when the hold lapses and becomes sweepable.
//	CreatedAt       – when the hold was created.
type SeatHold struct {
	ID              uint64
	ShowtimeID      uint64
	SeatLabel       string
	HolderBookingID uint64
	HolderUserID    uint64
	ExpiresAt       time.Time
	CreatedAt       time.Time
}

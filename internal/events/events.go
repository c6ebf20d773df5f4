// Package events defines the domain event payloads exchanged over
// RabbitMQ and a publisher/consumer pair: one durable queue per event
// kind, JSON bodies, persistent delivery mode.
package events

import "time"

const (
	seatStateChangedQueue  = "seat.state_changed"
	bookingConfirmedQueue  = "booking.confirmed"
)

// SeatStateChangedEvent is published after any primitive that mutates a
// showtime's seat state (hold, release, promote, sweep). Consumers that
// maintain a read-side cache of seat availability invalidate on showtime
// id alone; the event carries no seat detail.
type SeatStateChangedEvent struct {
	ShowtimeID uint64 `json:"showtime_id"`
	OccurredAt string `json:"occurred_at"`
}

// BookingConfirmedEvent is published once a booking transitions to
// CONFIRMED, for downstream logging/notification consumers.
type BookingConfirmedEvent struct {
	BookingID        uint64   `json:"booking_id"`
	BookingCode      string   `json:"booking_code"`
	UserID           uint64   `json:"user_id"`
	ShowtimeID       uint64   `json:"showtime_id"`
	Seats            []string `json:"seats"`
	TotalPriceCents  uint32   `json:"total_price_cents"`
	ConfirmedAt      string   `json:"confirmed_at"`
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

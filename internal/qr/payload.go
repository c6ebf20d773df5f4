// Package qr encodes and validates the booking-confirmation QR payload:
// a compact JSON document printed or displayed to the customer and
// scanned by staff at the gate.
package qr

import (
	"encoding/json"
	"errors"
	"time"
)

// MaxAge is how long a QR payload remains valid after its Timestamp.
const MaxAge = 30 * 24 * time.Hour

// ErrExpired indicates a payload whose Timestamp is older than MaxAge.
var ErrExpired = errors.New("qr: payload expired")

// ErrMalformed indicates a payload that failed to unmarshal.
var ErrMalformed = errors.New("qr: malformed payload")

// Payload is the compact JSON document embedded in the QR code image.
type Payload struct {
	BookingID   uint64   `json:"bookingId"`
	BookingCode string   `json:"bookingCode"`
	UserID      uint64   `json:"userId"`
	ShowtimeID  uint64   `json:"showtimeId"`
	Seats       []string `json:"seats"`
	TotalPrice  uint32   `json:"totalPrice"`
	Timestamp   int64    `json:"timestamp"` // unix seconds, UTC
}

// Encode marshals the payload to its wire JSON form.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a scanned QR body into a Payload.
func Decode(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, ErrMalformed
	}
	return p, nil
}

// CheckFresh returns ErrExpired if the payload's Timestamp is further
// than MaxAge in the past relative to now.
func (p Payload) CheckFresh(now time.Time) error {
	issued := time.Unix(p.Timestamp, 0).UTC()
	if now.Sub(issued) > MaxAge {
		return ErrExpired
	}
	return nil
}

package qr

import (
	"context"
	"time"

	"github.com/cinehold/reservation-service/internal/events"
	"github.com/cinehold/reservation-service/internal/model"
)

// Notifier implements booking.ConfirmationNotifier: on a confirmed
// booking it emits the BookingConfirmedEvent (for the logging consumer)
// and leaves QR rendering to the HTTP boundary, which calls
// PayloadFor/RenderPNG on demand rather than storing images.
type Notifier struct {
	publisher *events.Publisher
}

// NewNotifier constructs a Notifier around an events.Publisher.
func NewNotifier(publisher *events.Publisher) *Notifier {
	return &Notifier{publisher: publisher}
}

// NotifyBookingConfirmed satisfies booking.ConfirmationNotifier.
func (n *Notifier) NotifyBookingConfirmed(ctx context.Context, b *model.Booking) error {
	return n.publisher.PublishBookingConfirmed(ctx, b)
}

// PayloadFor builds the QR payload for a confirmed booking, stamped
// with the current time.
func PayloadFor(b *model.Booking) Payload {
	return Payload{
		BookingID:   b.ID,
		BookingCode: b.BookingCode,
		UserID:      b.UserID,
		ShowtimeID:  b.ShowtimeID,
		Seats:       b.Seats,
		TotalPrice:  b.TotalPriceCents,
		Timestamp:   time.Now().UTC().Unix(),
	}
}

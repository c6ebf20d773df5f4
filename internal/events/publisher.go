package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cinehold/reservation-service/internal/model"
)

// Publisher maintains one long-lived AMQP channel and republishes to it
// lazily after a dropped connection, rather than dialing per call.
// Holding the connection open matters here because Publisher sits on
// the request path of every seat mutation, not just a one-shot
// confirmation log line.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher constructs a Publisher. The connection is opened lazily
// on first Publish call so a broker outage at process start never
// blocks startup.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// Close releases the underlying connection, if one was opened.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishSeatStateChanged implements booking.SeatEventPublisher.
func (p *Publisher) PublishSeatStateChanged(ctx context.Context, showtimeID uint64) error {
	return p.publish(ctx, seatStateChangedQueue, SeatStateChangedEvent{
		ShowtimeID: showtimeID,
		OccurredAt: nowStamp(),
	})
}

// PublishBookingConfirmed emits a BookingConfirmedEvent for downstream
// logging/notification consumers. internal/qr.Notifier wraps this
// alongside QR generation to implement the full
// booking.ConfirmationNotifier contract.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, b *model.Booking) error {
	return p.publish(ctx, bookingConfirmedQueue, BookingConfirmedEvent{
		BookingID:       b.ID,
		BookingCode:     b.BookingCode,
		UserID:          b.UserID,
		ShowtimeID:      b.ShowtimeID,
		Seats:           b.Seats,
		TotalPriceCents: b.TotalPriceCents,
		ConfirmedAt:     nowStamp(),
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, event interface{}) error {
	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("events: acquire channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		p.reset()
		return fmt.Errorf("events: queue declare %s: %w", queue, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", queue, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(pubCtx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}); err != nil {
		p.reset()
		return fmt.Errorf("events: publish %s: %w", queue, err)
	}
	return nil
}

// channel returns the current channel, dialing a fresh connection if
// none is open or the prior one died.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.ch = nil
	log.Printf("events: connection reset, will redial on next publish")
}

package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartBookingConfirmedConsumer connects to RabbitMQ, declares the
// booking.confirmed queue (durable) and appends a structured log line
// per confirmation to logs/booking.log. It runs a reconnect loop with
// exponential backoff and never returns under normal operation.
func StartBookingConfirmedConsumer(url string) error {
	return runConsumer(url, bookingConfirmedQueue, logBookingConfirmed)
}

// StartSeatStateConsumer is the seat-side counterpart, appending a line
// per seat.state_changed event to logs/seat_state.log. Deployments that
// don't need a seat-availability audit trail can skip starting this.
func StartSeatStateConsumer(url string) error {
	return runConsumer(url, seatStateChangedQueue, logSeatStateChanged)
}

func runConsumer(url, queue string, handle func([]byte) error) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("events: %s consumer failed to dial broker: %v; retrying in %s", queue, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, queue, handle); err != nil {
			log.Printf("events: %s consume loop ended: %v; reconnecting", queue, err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queue string, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("events: %s set QoS failed: %v", queue, err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("events: %s handle message failed: %v", queue, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func logBookingConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	seats := "[]"
	if len(ev.Seats) > 0 {
		seats = fmt.Sprintf("[%s]", strings.Join(ev.Seats, ","))
	}
	line := fmt.Sprintf("[%s] booking confirmed | booking_id=%d | code=%s | user_id=%d | showtime_id=%d | total=%d cents | seats=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.BookingCode, ev.UserID, ev.ShowtimeID, ev.TotalPriceCents, seats)
	return appendLog("booking.log", line)
}

func logSeatStateChanged(body []byte) error {
	var ev SeatStateChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] seat state changed | showtime_id=%d\n", ev.OccurredAt, ev.ShowtimeID)
	return appendLog("seat_state.log", line)
}

func appendLog(name, line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}

// Package sweeper runs the two background reclamation passes:
// cancelling bookings that outlived the booking-expiry window and
// garbage-collecting seat holds that outlived the shorter hold window.
// Its loop shape is a goroutine per cadence that never returns under
// normal operation and only logs on failure, since a sweeper tick that
// errors must not stop the next tick from running.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
)

// defaultBatchSize bounds how many bookings one booking-expiry tick
// cancels, in bounded batches, to cap tick duration.
const defaultBatchSize = 100

// Sweeper owns the two independent tickers and the collaborators their
// ticks drive.
type Sweeper struct {
	bookings *repository.BookingRepo
	seats    *seatstore.Store
	engine   *booking.Engine

	bookingExpiry   time.Duration
	bookingPeriod   time.Duration
	holdSweepPeriod time.Duration
	batchSize       int
}

// New constructs a Sweeper. bookingExpiry is how long a PENDING booking
// survives before it is cancelled; bookingPeriod/holdSweepPeriod are the
// two tick cadences.
func New(bookings *repository.BookingRepo, seats *seatstore.Store, engine *booking.Engine, bookingExpiry, bookingPeriod, holdSweepPeriod time.Duration) *Sweeper {
	return &Sweeper{
		bookings:        bookings,
		seats:           seats,
		engine:          engine,
		bookingExpiry:   bookingExpiry,
		bookingPeriod:   bookingPeriod,
		holdSweepPeriod: holdSweepPeriod,
		batchSize:       defaultBatchSize,
	}
}

// Run starts both sweep loops and blocks until ctx is cancelled. Callers
// typically run it in its own goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	go s.loop(ctx, s.bookingPeriod, "booking-expiry", s.sweepExpiredBookings)
	go s.loop(ctx, s.holdSweepPeriod, "hold-gc", s.sweepExpiredHolds)
	<-ctx.Done()
}

func (s *Sweeper) loop(ctx context.Context, period time.Duration, name string, tick func(context.Context) (int, error)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tick(ctx)
			if err != nil {
				log.Printf("sweeper: %s tick failed: %v", name, err)
				continue
			}
			if n > 0 {
				log.Printf("sweeper: %s reclaimed %d", name, n)
			}
		}
	}
}

// sweepExpiredBookings selects PENDING bookings older than bookingExpiry
// and cancels each via BookingEngine.Cancel, which releases their holds
// atomically with the status transition. The selecting transaction
// commits before any Cancel call runs so a per-booking Cancel never
// waits on a row lock this sweeper itself is still holding.
func (s *Sweeper) sweepExpiredBookings(ctx context.Context) (int, error) {
	tx, err := s.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cutoff := time.Now().UTC().Add(-s.bookingExpiry).Unix()
	expired, err := s.bookings.ListExpiredPendingTx(ctx, tx, cutoff)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true

	if len(expired) > s.batchSize {
		expired = expired[:s.batchSize]
	}

	cancelled := 0
	for _, b := range expired {
		if _, err := s.engine.Cancel(ctx, b.ID); err != nil {
			log.Printf("sweeper: cancel booking %d failed: %v", b.ID, err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// sweepExpiredHolds runs a system-wide pass of seatstore.SweepExpired,
// releasing any held seat whose hold outlived the hold TTL independent
// of whether its owning booking has also expired.
func (s *Sweeper) sweepExpiredHolds(ctx context.Context) (int, error) {
	return s.seats.SweepExpired(ctx, nil)
}

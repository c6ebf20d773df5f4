// Package seatstore is the sole authority for showtime seat-state: a
// seat is never simultaneously booked and held, and never duplicated
// within either collection. Every mutation goes through
// one of the Store primitives below, each backed by a row-locked SQL
// transaction rather than a process-local lock, so contention for the
// same showtime serializes at the database regardless of how many
// request-handling goroutines are racing it.
package seatstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cinehold/reservation-service/internal/model"
	"github.com/cinehold/reservation-service/internal/repository"
)

// ErrShowtimeNotFound indicates the showtime referenced by a primitive
// does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// Store bundles the repositories backing the seat and hold tables. Its
// mutating primitives (TryHold, Promote, Release, ReversePromote) accept
// a caller-owned transaction so they compose atomically with
// BookingEngine's "Hold -> PersistBooking -> Commit" sequence; its
// read/sweep primitives (Snapshot, SweepExpired) manage their own
// transactions since they have no caller-side atomicity requirement.
type Store struct {
	seats     *repository.ShowtimeSeatRepo
	holds     *repository.SeatHoldRepo
	showtimes *repository.ShowtimeRepo
}

// New constructs a Store from its backing repositories.
func New(seats *repository.ShowtimeSeatRepo, holds *repository.SeatHoldRepo, showtimes *repository.ShowtimeRepo) *Store {
	return &Store{seats: seats, holds: holds, showtimes: showtimes}
}

// DB exposes the shared database handle so callers (BookingEngine) can
// open the transaction that TryHold/Promote/Release then join.
func (s *Store) DB() *sql.DB { return s.showtimes.DB() }

// HoldResult reports the outcome of a TryHold call.
type HoldResult struct {
	OK               bool
	ConflictingSeats []string
}

// TryHold succeeds only if every seat in seats is currently FREE. It is
// all-or-nothing: on any conflict, no row is mutated and ConflictingSeats
// names every seat that was not FREE (already held or already booked) or
// does not exist for this showtime. On success, each seat transitions to
// HELD and a seat_holds row is written with expiresAt = now + ttl.
func (s *Store) TryHold(ctx context.Context, tx *sql.Tx, showtimeID uint64, seats []string, holderBookingID, holderUserID uint64, ttl time.Duration) (HoldResult, error) {
	if len(seats) == 0 {
		return HoldResult{OK: true}, nil
	}
	locked, err := s.seats.LockRowsTx(ctx, tx, showtimeID, seats)
	if err != nil {
		return HoldResult{}, err
	}
	var conflicts []string
	for _, label := range seats {
		row, ok := locked[label]
		if !ok || row.Status != string(model.SeatFree) {
			conflicts = append(conflicts, label)
		}
	}
	if len(conflicts) > 0 {
		return HoldResult{OK: false, ConflictingSeats: conflicts}, nil
	}

	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	records := make([]repository.SeatHoldRecord, 0, len(seats))
	for _, label := range seats {
		row := locked[label]
		ok, err := s.seats.CompareAndSetStatusTx(ctx, tx, showtimeID, label, string(model.SeatHeld), row.Version)
		if err != nil {
			return HoldResult{}, err
		}
		if !ok {
			// Someone else mutated this row between the lock read and our
			// write, which should not happen while we hold the row lock
			// inside the same transaction; treat it as a conflict rather
			// than panic.
			conflicts = append(conflicts, label)
			continue
		}
		records = append(records, repository.SeatHoldRecord{
			ShowtimeID:      showtimeID,
			SeatLabel:       label,
			HolderBookingID: holderBookingID,
			HolderUserID:    holderUserID,
			ExpiresAt:       expiresAt,
		})
	}
	if len(conflicts) > 0 {
		return HoldResult{OK: false, ConflictingSeats: conflicts}, nil
	}
	if err := s.holds.CreateMultipleTx(ctx, tx, records); err != nil {
		return HoldResult{}, err
	}
	return HoldResult{OK: true}, nil
}

// Promote moves the listed seats from HELD into BOOKED, deleting any
// hold record referencing them regardless of which booking owns it (the
// confirm-time sweep). Re-promoting an already-booked seat is a no-op
// for that seat.
func (s *Store) Promote(ctx context.Context, tx *sql.Tx, showtimeID uint64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	if err := s.seats.BulkSetStatusTx(ctx, tx, showtimeID, seats, string(model.SeatBooked)); err != nil {
		return err
	}
	return s.holds.DeleteBySeatsTx(ctx, tx, showtimeID, seats)
}

// Release removes the holds owned by holderBookingID and resets the
// listed seats to FREE. Idempotent: a seat with no matching hold is left
// untouched by the delete and simply re-set to FREE.
func (s *Store) Release(ctx context.Context, tx *sql.Tx, showtimeID uint64, seats []string, holderBookingID uint64) error {
	if len(seats) == 0 {
		return nil
	}
	if _, err := s.holds.DeleteByBookingTx(ctx, tx, holderBookingID); err != nil {
		return err
	}
	return s.seats.BulkSetStatusTx(ctx, tx, showtimeID, seats, string(model.SeatFree))
}

// ReversePromote resets previously BOOKED seats back to FREE, used by
// BookingEngine.Cancel's refund path when cancelling a CONFIRMED booking.
func (s *Store) ReversePromote(ctx context.Context, tx *sql.Tx, showtimeID uint64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	return s.seats.BulkSetStatusTx(ctx, tx, showtimeID, seats, string(model.SeatFree))
}

// SweepExpired removes every hold whose expiry has passed. When
// showtimeID is nil it sweeps across every showtime that currently has
// an expired hold; otherwise it sweeps only the named showtime. It
// returns the number of seats released back to FREE.
func (s *Store) SweepExpired(ctx context.Context, showtimeID *uint64) (int, error) {
	var targets []uint64
	if showtimeID != nil {
		targets = []uint64{*showtimeID}
	} else {
		var err error
		targets, err = s.holds.ExpiredShowtimeIDs(ctx)
		if err != nil {
			return 0, err
		}
	}
	released := 0
	for _, id := range targets {
		n, err := s.sweepOne(ctx, id)
		if err != nil {
			return released, err
		}
		released += n
	}
	return released, nil
}

func (s *Store) sweepOne(ctx context.Context, showtimeID uint64) (int, error) {
	tx, err := s.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	labels, err := s.holds.ExpireHoldsTx(ctx, tx, showtimeID)
	if err != nil {
		return 0, err
	}
	if len(labels) > 0 {
		if err := s.seats.BulkSetStatusTx(ctx, tx, showtimeID, labels, string(model.SeatFree)); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return len(labels), nil
}

// ExtendHolds pushes out the expiry of every hold owned by holderBookingID
// to newExpiresAt, used by BookingEngine.Extend.
func (s *Store) ExtendHolds(ctx context.Context, tx *sql.Tx, holderBookingID uint64, newExpiresAt time.Time) error {
	return s.holds.ExtendTx(ctx, tx, holderBookingID, newExpiresAt)
}

// Snapshot purges expired holds for showtimeID inline, then returns the
// current booked/held seat labels and available count, so callers never
// observe stale holds.
func (s *Store) Snapshot(ctx context.Context, showtimeID uint64) (model.Snapshot, error) {
	if _, err := s.sweepOne(ctx, showtimeID); err != nil {
		return model.Snapshot{}, err
	}
	st, err := s.showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		if errors.Is(err, repository.ErrShowtimeNotFound) {
			return model.Snapshot{}, ErrShowtimeNotFound
		}
		return model.Snapshot{}, err
	}
	rows, err := s.seats.ListByShowtime(ctx, showtimeID)
	if err != nil {
		return model.Snapshot{}, err
	}
	snap := model.Snapshot{ShowtimeID: showtimeID, Capacity: st.Capacity}
	for _, row := range rows {
		switch row.Status {
		case string(model.SeatBooked):
			snap.BookedSeats = append(snap.BookedSeats, row.SeatLabel)
		case string(model.SeatHeld):
			snap.HeldSeats = append(snap.HeldSeats, row.SeatLabel)
		default:
			snap.AvailableCount++
		}
	}
	return snap, nil
}

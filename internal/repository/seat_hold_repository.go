package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// SeatHoldRecord is the persistence model for a seat_holds row, keyed by
// the PENDING booking that owns the hold rather than by a standalone
// token. internal/model.SeatHold is the business-logic counterpart.
type SeatHoldRecord struct {
	ID              uint64    // primary key of the seat_holds row
	ShowtimeID      uint64    // showtime the seat belongs to
	SeatLabel       string    // seat held
	HolderBookingID uint64    // PENDING booking that owns this hold
	HolderUserID    uint64    // user who created the booking
	ExpiresAt       time.Time // expiration timestamp
	CreatedAt       time.Time // creation timestamp
}

// SeatHoldRepo provides data access to the seat_holds table. All methods
// operate with respect to UTC timestamps.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

// DB returns the underlying sql.DB.
func (r *SeatHoldRepo) DB() *sql.DB { return r.db }

// ExpireHoldsTx removes every expired hold for a showtime and returns the
// seat labels whose holds were removed, so the caller can reset those
// showtime_seats rows back to FREE in the same transaction.
func (r *SeatHoldRepo) ExpireHoldsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT seat_label FROM seat_holds WHERE showtime_id = ? AND expires_at <= UTC_TIMESTAMP()`,
		showtimeID,
	)
	if err != nil {
		return nil, err
	}
	var expired []string
	for rows.Next() {
		var label string
		if scanErr := rows.Scan(&label); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		expired = append(expired, label)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return []string{}, nil
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM seat_holds WHERE showtime_id = ? AND expires_at <= UTC_TIMESTAMP()`,
		showtimeID,
	); err != nil {
		return nil, err
	}
	return expired, nil
}

// CreateMultipleTx inserts one seat_holds row per hold within the
// provided transaction. Passing an empty slice is a no-op.
func (r *SeatHoldRepo) CreateMultipleTx(ctx context.Context, tx *sql.Tx, holds []SeatHoldRecord) error {
	if len(holds) == 0 {
		return nil
	}
	query := `INSERT INTO seat_holds (showtime_id, seat_label, booking_id, user_id, expires_at) VALUES `
	args := make([]interface{}, 0, len(holds)*5)
	for i, h := range holds {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, h.ShowtimeID, h.SeatLabel, h.HolderBookingID, h.HolderUserID, h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// DeleteByBookingTx removes every hold owned by a booking, returning the
// seat labels that were released.
func (r *SeatHoldRepo) DeleteByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT seat_label FROM seat_holds WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, err
	}
	var labels []string
	for rows.Next() {
		var label string
		if scanErr := rows.Scan(&label); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		labels = append(labels, label)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE booking_id = ?`, bookingID); err != nil {
		return nil, err
	}
	return labels, nil
}

// DeleteBySeatsTx removes every hold for the given seat labels within a
// showtime regardless of which booking holds them, used by Promote's
// confirm-time sweep, removing any hold record whose seat is in the
// list regardless of holder.
func (r *SeatHoldRepo) DeleteBySeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabels []string) error {
	if len(seatLabels) == 0 {
		return nil
	}
	placeholders := make([]string, len(seatLabels))
	args := make([]interface{}, 0, len(seatLabels)+1)
	args = append(args, showtimeID)
	for i, label := range seatLabels {
		placeholders[i] = "?"
		args = append(args, label)
	}
	query := `DELETE FROM seat_holds WHERE showtime_id = ? AND seat_label IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ExpiredShowtimeIDs returns the distinct showtime IDs that currently have
// at least one expired hold, used by the sweeper's global
// SweepExpired(nil) pass to avoid scanning every showtime on each tick.
func (r *SeatHoldRepo) ExpiredShowtimeIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT showtime_id FROM seat_holds WHERE expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveHoldsByBookingTx retrieves every non-expired hold owned by a
// booking. Confirm does not call it: seatstore.Promote marks the seats
// BOOKED without checking for live holds.
func (r *SeatHoldRepo) ActiveHoldsByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]SeatHoldRecord, error) {
	const q = `SELECT id, showtime_id, seat_label, booking_id, user_id, expires_at, created_at
	           FROM seat_holds
	           WHERE booking_id = ? AND expires_at > UTC_TIMESTAMP()`
	rows, err := tx.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []SeatHoldRecord
	for rows.Next() {
		var h SeatHoldRecord
		if err := rows.Scan(&h.ID, &h.ShowtimeID, &h.SeatLabel, &h.HolderBookingID, &h.HolderUserID, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}

// ExtendTx pushes out the expiry of every hold owned by a booking to a
// new timestamp, used by BookingEngine.Extend.
func (r *SeatHoldRepo) ExtendTx(ctx context.Context, tx *sql.Tx, bookingID uint64, newExpiresAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE seat_holds SET expires_at = ? WHERE booking_id = ?`,
		newExpiresAt.UTC().Format("2006-01-02 15:04:05"), bookingID,
	)
	return err
}

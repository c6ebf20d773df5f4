package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cinehold/reservation-service/internal/model"
)

// BookingRepo provides CRUD and lifecycle operations for bookings. Seats
// are stored as a JSON array column rather than a join table: the list
// is frozen at creation and never queried seat-by-seat, so a join table
// would buy nothing but extra round trips.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB returns the underlying sql.DB.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new PENDING booking within the scope of an existing
// transaction and populates the generated ID and timestamps on b.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	seatsJSON, err := json.Marshal(b.Seats)
	if err != nil {
		return err
	}
	const q = `INSERT INTO bookings (booking_code, user_id, showtime_id, seats, total_price_cents, status)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.BookingCode, b.UserID, b.ShowtimeID, seatsJSON, b.TotalPriceCents, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.scanOneTx(ctx, tx, b.ID, b)
}

// CodeExistsTx reports whether a booking_code is already taken, used by
// the booking-code generator's unique-retry loop.
func (r *BookingRepo) CodeExistsTx(ctx context.Context, tx *sql.Tx, code string) (bool, error) {
	var dummy int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE booking_code = ?`, code).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetForUpdateTx loads a booking row locked with SELECT ... FOR UPDATE,
// the entry point for every state-transition operation (Confirm, Cancel,
// Extend) so two concurrent requests against the same booking serialize
// on this row.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE id = ? FOR UPDATE`
	b := &model.Booking{}
	if err := r.scanRow(tx.QueryRowContext(ctx, q, id), b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// Get loads a booking by ID without locking, for read endpoints.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE id = ?`
	b := &model.Booking{}
	if err := r.scanRow(r.db.QueryRowContext(ctx, q, id), b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetByCode loads a booking by its user-facing booking code.
func (r *BookingRepo) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE booking_code = ?`
	b := &model.Booking{}
	if err := r.scanRow(r.db.QueryRowContext(ctx, q, code), b); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListByUser returns every booking for a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := r.scanRow(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByShowtimeForOwner returns every booking for a showtime, provided the
// showtime belongs to a hall owned by ownerID. It returns ErrForbidden when
// the showtime exists but belongs to another owner, and ErrNotFound when the
// showtime does not exist at all.
func (r *BookingRepo) ListByShowtimeForOwner(ctx context.Context, showtimeID, ownerID uint64) ([]model.Booking, error) {
	var dbOwnerID uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT h.owner_id FROM showtimes st JOIN halls h ON h.id = st.hall_id WHERE st.id = ?`, showtimeID,
	).Scan(&dbOwnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dbOwnerID != ownerID {
		return nil, ErrForbidden
	}
	const q = bookingSelectCols + ` FROM bookings WHERE showtime_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := r.scanRow(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetForOwner loads a booking by ID provided its showtime belongs to a hall
// owned by ownerID. Returns ErrNotFound when the booking doesn't exist and
// ErrForbidden when it exists but is owned by someone else's hall.
func (r *BookingRepo) GetForOwner(ctx context.Context, id, ownerID uint64) (*model.Booking, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var dbOwnerID uint64
	err = r.db.QueryRowContext(ctx,
		`SELECT h.owner_id FROM showtimes st JOIN halls h ON h.id = st.hall_id WHERE st.id = ?`, b.ShowtimeID,
	).Scan(&dbOwnerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if dbOwnerID != ownerID {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListExpiredPendingTx returns every PENDING booking created at or before
// cutoff (a unix timestamp), locked FOR UPDATE, used by the expiry
// sweeper's booking-cancellation pass.
func (r *BookingRepo) ListExpiredPendingTx(ctx context.Context, tx *sql.Tx, cutoff int64) ([]model.Booking, error) {
	const q = bookingSelectCols + ` FROM bookings WHERE status = 'PENDING' AND created_at <= FROM_UNIXTIME(?) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := r.scanRow(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompareAndSetStatusTx transitions a booking from fromStatus to
// toStatus, returning false when the row was no longer in fromStatus
// (someone else already transitioned it).
func (r *BookingRepo) CompareAndSetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, fromStatus, toStatus model.BookingStatus) (bool, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, toStatus, id, fromStatus)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetPaymentIDTx attaches a payment to a booking once CreateIntent
// creates the Payment row.
func (r *BookingRepo) SetPaymentIDTx(ctx context.Context, tx *sql.Tx, bookingID, paymentID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET payment_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, paymentID, bookingID)
	return err
}

const bookingSelectCols = `SELECT id, booking_code, user_id, showtime_id, seats, total_price_cents, status, payment_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting
// scanRow serve single-row and multi-row callers alike.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *BookingRepo) scanRow(row rowScanner, b *model.Booking) error {
	var seatsJSON []byte
	var paymentID sql.NullInt64
	if err := row.Scan(&b.ID, &b.BookingCode, &b.UserID, &b.ShowtimeID, &seatsJSON, &b.TotalPriceCents, &b.Status, &paymentID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return err
	}
	if err := json.Unmarshal(seatsJSON, &b.Seats); err != nil {
		return err
	}
	if paymentID.Valid {
		pid := uint64(paymentID.Int64)
		b.PaymentID = &pid
	}
	return nil
}

func (r *BookingRepo) scanOneTx(ctx context.Context, tx *sql.Tx, id uint64, b *model.Booking) error {
	const q = bookingSelectCols + ` FROM bookings WHERE id = ?`
	return r.scanRow(tx.QueryRowContext(ctx, q, id), b)
}

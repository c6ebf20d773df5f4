package repository // repository for showtime seat persistence

import (
	"context"      // context for managing deadlines
	"database/sql" // sql provides DB interfaces
	"strings"      // strings for building dynamic queries
	"time"
)

// ShowtimeSeatRow mirrors one row of the showtime_seats table: a single
// seat label within a single showtime, its lifecycle status, frozen
// price and optimistic-locking version.
type ShowtimeSeatRow struct {
	ID         uint64 // showtime_seats.id
	ShowtimeID uint64 // showtime_seats.showtime_id
	SeatLabel  string // showtime_seats.seat_label
	Status     string // FREE, HELD or BOOKED
	PriceCents uint32 // showtime_seats.price_cents
	Version    uint32 // showtime_seats.version, enforced via WHERE version = ? on writes
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ShowtimeSeatRepo encapsulates database operations for showtime_seats.
type ShowtimeSeatRepo struct {
	db *sql.DB
}

// NewShowtimeSeatRepo constructs a ShowtimeSeatRepo given a DB handle.
func NewShowtimeSeatRepo(db *sql.DB) *ShowtimeSeatRepo {
	return &ShowtimeSeatRepo{db: db}
}

// DB returns the underlying sql.DB so callers can begin their own
// transactions using the same handle.
func (r *ShowtimeSeatRepo) DB() *sql.DB { return r.db }

// CreateBulkTx inserts one showtime_seats row per seat label within an
// existing transaction, used when a showtime is created from a hall's
// seat map.
func (r *ShowtimeSeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabels []string, priceCents uint32) error {
	if len(seatLabels) == 0 {
		return nil
	}
	query := `INSERT INTO showtime_seats (showtime_id, seat_label, status, price_cents, version) VALUES `
	args := make([]interface{}, 0, len(seatLabels)*5)
	for i, label := range seatLabels {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, 'FREE', ?, 1)"
		args = append(args, showtimeID, label, priceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// LockRowsTx locks the rows for the given seat labels within a showtime
// using SELECT ... FOR UPDATE, returning them keyed by seat label. This
// is the serialization point every seat-mutating operation goes
// through: no in-process lock spans the request, the row lock is the
// only coordination primitive.
func (r *ShowtimeSeatRepo) LockRowsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabels []string) (map[string]ShowtimeSeatRow, error) {
	out := make(map[string]ShowtimeSeatRow, len(seatLabels))
	if len(seatLabels) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(seatLabels))
	args := make([]interface{}, 0, len(seatLabels)+1)
	args = append(args, showtimeID)
	for i, label := range seatLabels {
		placeholders[i] = "?"
		args = append(args, label)
	}
	query := `SELECT id, showtime_id, seat_label, status, price_cents, version, created_at, updated_at
	          FROM showtime_seats
	          WHERE showtime_id = ? AND seat_label IN (` + strings.Join(placeholders, ",") + `)
	          FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var row ShowtimeSeatRow
		if err := rows.Scan(&row.ID, &row.ShowtimeID, &row.SeatLabel, &row.Status, &row.PriceCents, &row.Version, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out[row.SeatLabel] = row
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompareAndSetStatusTx transitions a single seat's status from one
// known version to Status=newStatus, bumping version by one. It
// returns false (no error) if the version no longer matches, meaning
// another transaction mutated the row first.
func (r *ShowtimeSeatRepo) CompareAndSetStatusTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabel, newStatus string, expectedVersion uint32) (bool, error) {
	const q = `UPDATE showtime_seats
	           SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE showtime_id = ? AND seat_label = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, newStatus, showtimeID, seatLabel, expectedVersion)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// BulkSetStatusTx sets status for every given seat label unconditionally
// (no version check), used by paths that already hold the row lock from
// LockRowsTx within the same transaction, e.g. sweeper cleanup.
func (r *ShowtimeSeatRepo) BulkSetStatusTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabels []string, status string) error {
	if len(seatLabels) == 0 {
		return nil
	}
	placeholders := make([]string, len(seatLabels))
	args := make([]interface{}, 0, len(seatLabels)+2)
	args = append(args, status, showtimeID)
	for i, label := range seatLabels {
		placeholders[i] = "?"
		args = append(args, label)
	}
	query := `UPDATE showtime_seats
	          SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE showtime_id = ? AND seat_label IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// SeatWithComputedStatus is the read-side view used by Snapshot: a seat
// label plus its status as computed after purging expired holds.
type SeatWithComputedStatus struct {
	SeatLabel  string
	Status     string
	PriceCents uint32
}

// ListByShowtime returns every seat row for a showtime ordered by label,
// used to build the public availability snapshot.
func (r *ShowtimeSeatRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]SeatWithComputedStatus, error) {
	const q = `SELECT seat_label, status, price_cents FROM showtime_seats WHERE showtime_id = ? ORDER BY seat_label`
	rows, err := r.db.QueryContext(ctx, q, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeatWithComputedStatus
	for rows.Next() {
		var s SeatWithComputedStatus
		if err := rows.Scan(&s.SeatLabel, &s.Status, &s.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PricesForSeatsTx returns seat_label -> price_cents for the given
// labels within a showtime, used to compute a booking's total price.
func (r *ShowtimeSeatRepo) PricesForSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seatLabels []string) (map[string]uint32, error) {
	result := make(map[string]uint32)
	if len(seatLabels) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(seatLabels))
	args := make([]interface{}, 0, len(seatLabels)+1)
	args = append(args, showtimeID)
	for i, label := range seatLabels {
		placeholders[i] = "?"
		args = append(args, label)
	}
	query := `SELECT seat_label, price_cents FROM showtime_seats
	          WHERE showtime_id = ? AND seat_label IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var label string
		var price uint32
		if err := rows.Scan(&label, &price); err != nil {
			return nil, err
		}
		result[label] = price
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

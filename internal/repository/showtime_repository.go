// Package repository contains data access logic for Showtime domain
// operations. This file defines the Showtime record and repository
// methods for showtimes. A Showtime represents a scheduled screening of
// a movie in a hall, together with the capacity and unit seat price
// used to populate showtime_seats when it is created.
package repository

import (
	"context" // context for controlling query lifetime
	"database/sql"
	"errors"
)

// ShowtimeRecord is the repository-layer view of a showtime. Time
// fields are stored and compared as DB-format UTC strings
// ("2006-01-02 15:04:05"), matching the rest of this layer's idiom.
type ShowtimeRecord struct {
	ID         uint64
	HallID     uint64
	MovieTitle string
	StartsAt   string
	EndsAt     string
	PriceCents uint32
	Capacity   uint32
	Status     string
	CreatedAt  string
	UpdatedAt  string
}

// ErrShowtimeNotFound indicates that a showtime was not located in the DB.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrNoChange indicates the UPDATE attempted to set fields equal to current values.
var ErrNoChange = errors.New("no change")

// ShowtimeRepo manages persistence for showtimes.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *ShowtimeRepo) DB() *sql.DB {
	return r.db
}

// CreateTx inserts a new showtime using the provided transaction. On
// success, the generated ID and DB-default fields (status, timestamps)
// are populated on s.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *ShowtimeRecord) error {
	const q = `INSERT INTO showtimes (hall_id, movie_title, starts_at, ends_at, price_cents, capacity) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, s.HallID, s.MovieTitle, s.StartsAt, s.EndsAt, s.PriceCents, s.Capacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT id, hall_id, movie_title, starts_at, ends_at, price_cents, capacity, status, created_at, updated_at
	             FROM showtimes WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, s.ID).Scan(
		&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
}

// GetByID retrieves a showtime by its ID. It returns ErrShowtimeNotFound
// if there is no matching row.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*ShowtimeRecord, error) {
	const q = `SELECT id, hall_id, movie_title, starts_at, ends_at, price_cents, capacity, status, created_at, updated_at FROM showtimes WHERE id = ?`
	var s ShowtimeRecord
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByHallAndOwner returns all showtimes for a given hall that belong
// to the specified owner. Results are ordered by start time ascending.
func (r *ShowtimeRepo) ListByHallAndOwner(ctx context.Context, hallID, ownerID uint64) ([]ShowtimeRecord, error) {
	const q = `SELECT s.id, s.hall_id, s.movie_title, s.starts_at, s.ends_at, s.price_cents, s.capacity, s.status, s.created_at, s.updated_at
	           FROM showtimes s
	           JOIN halls h ON h.id = s.hall_id
	           WHERE s.hall_id = ? AND h.owner_id = ?
	           ORDER BY s.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, hallID, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ShowtimeRecord
	for rows.Next() {
		var s ShowtimeRecord
		if err := rows.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByHall returns all showtimes for a given hall regardless of
// owner, used by public browse endpoints. Ordered by start time
// ascending.
func (r *ShowtimeRepo) ListByHall(ctx context.Context, hallID uint64) ([]ShowtimeRecord, error) {
	const q = `SELECT s.id, s.hall_id, s.movie_title, s.starts_at, s.ends_at, s.price_cents, s.capacity, s.status, s.created_at, s.updated_at
	           FROM showtimes s
	           WHERE s.hall_id = ?
	           ORDER BY s.starts_at ASC`
	rows, err := r.db.QueryContext(ctx, q, hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []ShowtimeRecord
	for rows.Next() {
		var s ShowtimeRecord
		if err := rows.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindOverlapping finds all showtimes in the specified hall whose
// scheduled time overlaps the interval [start, end). A showtime
// overlaps when it starts before the proposed end and ends after the
// proposed start. Time strings must use the DB format.
func (r *ShowtimeRepo) FindOverlapping(ctx context.Context, hallID uint64, start, end string) ([]ShowtimeRecord, error) {
	const q = `SELECT id, hall_id, movie_title, starts_at, ends_at, price_cents, capacity, status, created_at, updated_at
	           FROM showtimes
	           WHERE hall_id = ? AND NOT (ends_at <= ? OR starts_at >= ?)`
	rows, err := r.db.QueryContext(ctx, q, hallID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overlaps []ShowtimeRecord
	for rows.Next() {
		var s ShowtimeRecord
		if err := rows.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		overlaps = append(overlaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overlaps, nil
}

// FindOverlappingExcluding is like FindOverlapping but excludes the
// showtime with the given ID, used during updates so a showtime can
// overlap with itself.
func (r *ShowtimeRepo) FindOverlappingExcluding(ctx context.Context, hallID, excludeID uint64, start, end string) ([]ShowtimeRecord, error) {
	const q = `SELECT id, hall_id, movie_title, starts_at, ends_at, price_cents, capacity, status, created_at, updated_at
	           FROM showtimes
	           WHERE hall_id = ? AND id <> ? AND NOT (ends_at <= ? OR starts_at >= ?)`
	rows, err := r.db.QueryContext(ctx, q, hallID, excludeID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overlaps []ShowtimeRecord
	for rows.Next() {
		var s ShowtimeRecord
		if err := rows.Scan(&s.ID, &s.HallID, &s.MovieTitle, &s.StartsAt, &s.EndsAt, &s.PriceCents, &s.Capacity, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		overlaps = append(overlaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overlaps, nil
}

// UpdateByIDAndOwner updates a showtime's attributes if it belongs to a
// hall owned by the given owner. It only performs the UPDATE when at
// least one field differs; otherwise it returns ErrNoChange. When the
// row/ownership doesn't match, it returns sql.ErrNoRows.
func (r *ShowtimeRepo) UpdateByIDAndOwner(ctx context.Context, s *ShowtimeRecord, ownerID uint64) error {
	const q = `UPDATE showtimes sh
	           JOIN halls h ON h.id = sh.hall_id
	           SET sh.movie_title = ?, sh.starts_at = ?, sh.ends_at = ?, sh.price_cents = ?, sh.status = ?, sh.updated_at = CURRENT_TIMESTAMP
	           WHERE sh.id = ? AND h.owner_id = ?
	             AND (sh.movie_title <> ? OR sh.starts_at <> ? OR sh.ends_at <> ? OR sh.price_cents <> ? OR sh.status <> ?)`

	res, err := r.db.ExecContext(ctx, q,
		s.MovieTitle, s.StartsAt, s.EndsAt, s.PriceCents, s.Status,
		s.ID, ownerID,
		s.MovieTitle, s.StartsAt, s.EndsAt, s.PriceCents, s.Status,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	const qExists = `SELECT 1
	                 FROM showtimes sh
	                 JOIN halls h ON h.id = sh.hall_id
	                 WHERE sh.id = ? AND h.owner_id = ?
	                 LIMIT 1`
	var one int
	if err := r.db.QueryRowContext(ctx, qExists, s.ID, ownerID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return err
	}
	return ErrNoChange
}

// DeleteByIDAndOwner removes a showtime and its showtime_seats rows
// provided the showtime belongs to a hall owned by the given owner. If
// any bookings exist for the showtime, the deletion is aborted and
// ErrConflict is returned.
func (r *ShowtimeRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	var dbOwnerID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT h.owner_id FROM showtimes sh JOIN halls h ON h.id = sh.hall_id WHERE sh.id = ?`, id,
	).Scan(&dbOwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShowtimeNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		return ErrForbidden
	}
	var bookingCount int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE showtime_id = ?`, id).Scan(&bookingCount); err != nil {
		return err
	}
	if bookingCount > 0 {
		return ErrConflict
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM showtime_seats WHERE showtime_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}

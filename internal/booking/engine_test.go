package booking

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinehold/reservation-service/internal/model"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
)

func TestValidateSeats(t *testing.T) {
	cases := []struct {
		name    string
		seats   []string
		wantErr error
	}{
		{"empty", nil, ErrValidation},
		{"blank label", []string{"A1", ""}, ErrValidation},
		{"duplicate", []string{"A1", "A1"}, ErrValidation},
		{"ok", []string{"A1", "A2"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSeats(tc.seats)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func newEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bookings := repository.NewBookingRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	seats := seatstore.New(repository.NewShowtimeSeatRepo(db), repository.NewSeatHoldRepo(db), showtimes)
	return New(bookings, showtimes, seats, 10*time.Minute, nil, nil), mock
}

func TestEngine_Create_SeatConflictRollsBack(t *testing.T) {
	e, mock := newEngine(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM showtimes WHERE id = ?").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hall_id", "movie_title", "starts_at", "ends_at", "price_cents", "capacity", "status", "created_at", "updated_at"}).
			AddRow(1, 1, "Movie", "2026-08-01 18:00:00", "2026-08-01 20:00:00", 1000, 50, "SCHEDULED", "2026-07-01 00:00:00", "2026-07-01 00:00:00"))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM bookings WHERE booking_code").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT id, booking_code, user_id, showtime_id, seats, total_price_cents, status, payment_id, created_at, updated_at FROM bookings WHERE id = ?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_code", "user_id", "showtime_id", "seats", "total_price_cents", "status", "payment_id", "created_at", "updated_at"}).
			AddRow(1, "ABCDEFGH", 7, 1, []byte(`["A1","A2"]`), 2000, "PENDING", nil, time.Now(), time.Now()))
	mock.ExpectQuery("FROM showtime_seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "showtime_id", "seat_label", "status", "price_cents", "version", "created_at", "updated_at"}).
			AddRow(1, 1, "A1", "FREE", 1000, 1, time.Now(), time.Now()).
			AddRow(2, 1, "A2", "HELD", 1000, 1, time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := e.Create(ctx, 7, 1, []string{"A1", "A2"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"A2"}, conflict.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Create_TooManySeatsIsValidationError(t *testing.T) {
	e, mock := newEngine(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM showtimes WHERE id = ?").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "hall_id", "movie_title", "starts_at", "ends_at", "price_cents", "capacity", "status", "created_at", "updated_at"}).
			AddRow(1, 1, "Movie", "2026-08-01 18:00:00", "2026-08-01 20:00:00", 1000, 1, "SCHEDULED", "2026-07-01 00:00:00", "2026-07-01 00:00:00"))

	_, err := e.Create(ctx, 7, 1, []string{"A1", "A2"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Confirm_AlreadyConfirmedIsNoop(t *testing.T) {
	e, mock := newEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_code", "user_id", "showtime_id", "seats", "total_price_cents", "status", "payment_id", "created_at", "updated_at"}).
			AddRow(1, "ABCDEFGH", 7, 1, []byte(`["A1"]`), 1000, "CONFIRMED", 5, time.Now(), time.Now()))
	mock.ExpectCommit()

	b, err := e.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngine_Confirm_CancelledIsInvalidTransition(t *testing.T) {
	e, mock := newEngine(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM bookings WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_code", "user_id", "showtime_id", "seats", "total_price_cents", "status", "payment_id", "created_at", "updated_at"}).
			AddRow(1, "ABCDEFGH", 7, 1, []byte(`["A1"]`), 1000, "CANCELLED", nil, time.Now(), time.Now()))
	mock.ExpectRollback()

	_, err := e.Confirm(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

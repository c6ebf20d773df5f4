package seatstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinehold/reservation-service/internal/repository"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := New(repository.NewShowtimeSeatRepo(db), repository.NewSeatHoldRepo(db), repository.NewShowtimeRepo(db))
	return s, mock
}

func TestTryHold_AllFree_Succeeds(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM showtime_seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "showtime_id", "seat_label", "status", "price_cents", "version", "created_at", "updated_at"}).
			AddRow(1, 1, "A1", "FREE", 1000, 1, time.Now(), time.Now()).
			AddRow(2, 1, "A2", "FREE", 1000, 1, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE showtime_seats").WithArgs("HELD", uint64(1), "A1", uint32(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE showtime_seats").WithArgs("HELD", uint64(1), "A2", uint32(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO seat_holds").WillReturnResult(sqlmock.NewResult(1, 2))

	tx, err := s.DB().Begin()
	require.NoError(t, err)

	result, err := s.TryHold(ctx, tx, 1, []string{"A1", "A2"}, 9, 7, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Empty(t, result.ConflictingSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryHold_Conflict_NoMutation(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM showtime_seats").
		WillReturnRows(sqlmock.NewRows([]string{"id", "showtime_id", "seat_label", "status", "price_cents", "version", "created_at", "updated_at"}).
			AddRow(1, 1, "A1", "BOOKED", 1000, 1, time.Now(), time.Now()))

	tx, err := s.DB().Begin()
	require.NoError(t, err)

	result, err := s.TryHold(ctx, tx, 1, []string{"A1"}, 9, 7, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, []string{"A1"}, result.ConflictingSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelease_ClearsHoldsAndFreesSeats(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT seat_label FROM seat_holds WHERE booking_id").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}).AddRow("A1"))
	mock.ExpectExec("DELETE FROM seat_holds WHERE booking_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE showtime_seats").WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := s.DB().Begin()
	require.NoError(t, err)

	err = s.Release(ctx, tx, 1, []string{"A1"}, 9)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweepExpired_SpecificShowtime_ReleasesLabels(t *testing.T) {
	s, mock := newStore(t)
	ctx := context.Background()
	showtimeID := uint64(1)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT seat_label FROM seat_holds WHERE showtime_id").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}).AddRow("A1").AddRow("A2"))
	mock.ExpectExec("DELETE FROM seat_holds WHERE showtime_id").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE showtime_seats").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := s.SweepExpired(ctx, &showtimeID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

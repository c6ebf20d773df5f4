package payment

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/repository"
	"github.com/cinehold/reservation-service/internal/seatstore"
)

type stubGateway struct {
	name   string
	result CallbackResult
	err    error
}

func (g *stubGateway) Name() string { return g.name }
func (g *stubGateway) BuildRedirectURL(Intent) (string, error) {
	return "https://gateway.example.com/pay", nil
}
func (g *stubGateway) VerifyCallback(url.Values) (CallbackResult, error) {
	return g.result, g.err
}

func newCoordinator(t *testing.T, gw Gateway) (*Coordinator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bookings := repository.NewBookingRepo(db)
	payments := repository.NewPaymentRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	seats := seatstore.New(repository.NewShowtimeSeatRepo(db), repository.NewSeatHoldRepo(db), showtimes)
	engine := booking.New(bookings, showtimes, seats, 10*time.Minute, nil, nil)

	gateways := map[string]Gateway{}
	if gw != nil {
		gateways[gw.Name()] = gw
	}
	c := NewCoordinator(payments, bookings, engine, gateways)
	return c, mock
}

func paymentRow(id uint64, bookingID uint64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "booking_id", "amount_cents", "method", "provider_order_ref", "provider_txn_id", "status", "paid_at", "created_at", "updated_at"}).
		AddRow(id, bookingID, 1500, "vnpay", "5-1690000000000", nil, status, nil, time.Now(), time.Now())
}

func TestHandleCallback_AlreadyCompleted_IsIdempotent(t *testing.T) {
	gw := &stubGateway{name: "vnpay", result: CallbackResult{OrderRef: "5-1690000000000", Success: true, ResponseCode: "00", GatewayTxnID: "tx1"}}
	c, mock := newCoordinator(t, gw)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM payments WHERE provider_order_ref").
		WillReturnRows(paymentRow(9, 5, "COMPLETED"))
	mock.ExpectCommit()

	resp, err := c.HandleCallback(context.Background(), SourceNotify, "vnpay", url.Values{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, resp.Outcome)
	assert.Equal(t, uint64(5), resp.BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleCallback_UnknownGateway(t *testing.T) {
	c, _ := newCoordinator(t, nil)
	_, err := c.HandleCallback(context.Background(), SourceNotify, "nosuch", url.Values{})
	assert.Error(t, err)
}

func TestHandleCallback_InvalidSignature(t *testing.T) {
	gw := &stubGateway{name: "vnpay", err: ErrInvalidSignature}
	c, _ := newCoordinator(t, gw)

	resp, err := c.HandleCallback(context.Background(), SourceReturn, "vnpay", url.Values{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, OutcomeFailure, resp.Outcome)
}

func TestHandleCallback_UnknownOrderRef(t *testing.T) {
	gw := &stubGateway{name: "vnpay", result: CallbackResult{OrderRef: "not-an-order-ref", Success: true}}
	c, _ := newCoordinator(t, gw)

	_, err := c.HandleCallback(context.Background(), SourceReturn, "vnpay", url.Values{})
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestParseOrderRef(t *testing.T) {
	id, err := parseOrderRef("42-1690000000000")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = parseOrderRef("malformed")
	assert.Error(t, err)

	_, err = parseOrderRef("42-")
	assert.Error(t, err)
}

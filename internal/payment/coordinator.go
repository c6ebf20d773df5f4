package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cinehold/reservation-service/internal/booking"
	"github.com/cinehold/reservation-service/internal/model"
	"github.com/cinehold/reservation-service/internal/repository"
)

// CallbackSource distinguishes the user-agent return redirect from the
// server-to-server notification; both converge on the same verify ->
// resolve -> idempotency-check -> apply pipeline.
type CallbackSource string

const (
	SourceReturn CallbackSource = "return"
	SourceNotify CallbackSource = "notify"
)

// Outcome is what HandleCallback reports to its HTTP caller.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// CallbackResponse is HandleCallback's result: enough for a return
// handler to redirect the browser and for a notify handler to render
// the gateway's expected acknowledgement body.
type CallbackResponse struct {
	Outcome      Outcome
	BookingID    uint64
	HumanMessage string
}

// Coordinator bridges BookingEngine and the set of configured payment
// gateways. It owns the Payment row lifecycle and is the sole caller of
// Engine.Confirm/Cancel on the payment path.
type Coordinator struct {
	payments *repository.PaymentRepo
	bookings *repository.BookingRepo
	engine   *booking.Engine
	gateways map[string]Gateway
	now      func() time.Time
}

// NewCoordinator constructs a Coordinator. gateways is keyed by the
// method name routes and CreateIntent calls pass through, e.g. "vnpay".
func NewCoordinator(payments *repository.PaymentRepo, bookings *repository.BookingRepo, engine *booking.Engine, gateways map[string]Gateway) *Coordinator {
	return &Coordinator{payments: payments, bookings: bookings, engine: engine, gateways: gateways, now: time.Now}
}

func (c *Coordinator) gateway(method string) (Gateway, error) {
	gw, ok := c.gateways[method]
	if !ok {
		return nil, fmt.Errorf("payment: unknown gateway %q", method)
	}
	return gw, nil
}

// CreateIntent opens a PENDING payment against a PENDING booking and
// returns the gateway's redirect URL alongside the persisted Payment.
// An existing PENDING payment for the booking is superseded (marked
// FAILED) first; an existing COMPLETED payment rejects the call
// outright.
func (c *Coordinator) CreateIntent(ctx context.Context, bookingID uint64, method, clientIP string) (*model.Payment, string, error) {
	gw, err := c.gateway(method)
	if err != nil {
		return nil, "", err
	}

	tx, err := c.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := c.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", booking.ErrNotFound
		}
		return nil, "", err
	}
	if b.Status != model.BookingPending {
		return nil, "", booking.ErrInvalidTransition
	}

	existing, err := c.payments.GetActiveForBookingTx(ctx, tx, bookingID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}
	if err == nil {
		if existing.Status == model.PaymentCompleted {
			return nil, "", ErrAlreadyPaid
		}
		ok, err := c.payments.CompareAndSetStatusTx(ctx, tx, existing.ID, model.PaymentFailed, nil)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", ErrConcurrentIntent
		}
	}

	orderRef := fmt.Sprintf("%d-%d", bookingID, c.now().UnixMilli())
	p := &model.Payment{
		BookingID:        bookingID,
		AmountCents:      b.TotalPriceCents,
		Method:           method,
		ProviderOrderRef: orderRef,
		Status:           model.PaymentPending,
	}
	if err := c.payments.CreateTx(ctx, tx, p); err != nil {
		return nil, "", err
	}
	if err := c.bookings.SetPaymentIDTx(ctx, tx, bookingID, p.ID); err != nil {
		return nil, "", err
	}

	redirectURL, err := gw.BuildRedirectURL(Intent{
		OrderRef:    orderRef,
		AmountCents: p.AmountCents,
		ClientIP:    clientIP,
		CreatedAt:   c.now(),
	})
	if err != nil {
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	committed = true
	return p, redirectURL, nil
}

// HandleCallback runs a four-step pipeline: authenticate the signature,
// resolve the order reference to a booking/payment pair, short-circuit
// if the payment already reached a terminal state (callback
// idempotence), and otherwise apply the gateway's reported outcome via
// a CAS on Payment.status before driving
// BookingEngine.Confirm or Cancel.
func (c *Coordinator) HandleCallback(ctx context.Context, source CallbackSource, method string, params url.Values) (CallbackResponse, error) {
	gw, err := c.gateway(method)
	if err != nil {
		return CallbackResponse{}, err
	}

	result, err := gw.VerifyCallback(params)
	if err != nil {
		return CallbackResponse{Outcome: OutcomeFailure, HumanMessage: "invalid signature"}, ErrInvalidSignature
	}

	bookingID, refErr := parseOrderRef(result.OrderRef)
	if refErr != nil {
		return CallbackResponse{Outcome: OutcomeFailure, HumanMessage: "unknown order"}, ErrUnknownOrder
	}

	tx, err := c.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return CallbackResponse{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	p, err := c.payments.GetByOrderRefTx(ctx, tx, result.OrderRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CallbackResponse{Outcome: OutcomeFailure, BookingID: bookingID, HumanMessage: "unknown order"}, ErrUnknownOrder
		}
		return CallbackResponse{}, err
	}

	switch p.Status {
	case model.PaymentCompleted:
		if err := tx.Commit(); err != nil {
			return CallbackResponse{}, err
		}
		committed = true
		return CallbackResponse{Outcome: OutcomeSuccess, BookingID: p.BookingID, HumanMessage: "payment already confirmed"}, nil
	case model.PaymentFailed, model.PaymentRefunded:
		if err := tx.Commit(); err != nil {
			return CallbackResponse{}, err
		}
		committed = true
		return CallbackResponse{Outcome: OutcomeFailure, BookingID: p.BookingID, HumanMessage: "payment already finalized"}, nil
	}

	var applied bool
	if result.Success {
		txnID := result.GatewayTxnID
		applied, err = c.payments.CompareAndSetStatusTx(ctx, tx, p.ID, model.PaymentCompleted, &txnID)
	} else {
		applied, err = c.payments.CompareAndSetStatusTx(ctx, tx, p.ID, model.PaymentFailed, nil)
	}
	if err != nil {
		return CallbackResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return CallbackResponse{}, err
	}
	committed = true

	if !applied {
		// Lost the CAS race to a concurrent callback for the same payment;
		// whatever outcome that caller applied already stands.
		return CallbackResponse{Outcome: terminalOutcome(result.Success), BookingID: p.BookingID, HumanMessage: "duplicate callback ignored"}, nil
	}

	if result.Success {
		if _, err := c.engine.Confirm(ctx, p.BookingID); err != nil {
			return CallbackResponse{}, err
		}
		return CallbackResponse{Outcome: OutcomeSuccess, BookingID: p.BookingID, HumanMessage: "payment confirmed"}, nil
	}

	b, err := c.bookings.Get(ctx, p.BookingID)
	if err != nil {
		return CallbackResponse{}, err
	}
	if b.Status == model.BookingPending {
		if _, err := c.engine.Cancel(ctx, p.BookingID); err != nil {
			return CallbackResponse{}, err
		}
	}
	return CallbackResponse{Outcome: OutcomeFailure, BookingID: p.BookingID, HumanMessage: "payment declined"}, nil
}

// Refund transitions a COMPLETED payment to REFUNDED and cancels its
// booking (the refund path of BookingEngine.Cancel, which reverses the
// seat promotion). Permitted only from COMPLETED.
func (c *Coordinator) Refund(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	p, err := c.payments.Get(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	tx, err := c.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ok, err := c.payments.MarkRefundedTx(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, booking.ErrInvalidTransition
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	if _, err := c.engine.Cancel(ctx, p.BookingID); err != nil {
		return nil, err
	}
	p.Status = model.PaymentRefunded
	return p, nil
}

func terminalOutcome(success bool) Outcome {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// parseOrderRef splits a "{bookingId}-{unixMillis}" order reference and
// recovers the booking id.
func parseOrderRef(ref string) (uint64, error) {
	idx := strings.LastIndex(ref, "-")
	if idx <= 0 || idx == len(ref)-1 {
		return 0, fmt.Errorf("payment: malformed order reference %q", ref)
	}
	id, err := strconv.ParseUint(ref[:idx], 10, 64)
	if err != nil {
		return 0, err
	}
	return id, nil
}

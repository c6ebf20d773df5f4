package repository

import (
	"context"
	"database/sql"

	"github.com/cinehold/reservation-service/internal/model"
)

// PaymentRepo provides CRUD and compare-and-set operations for payments.
// The CAS update in CompareAndSetStatusTx is the single point that guarantees a
// payment settles exactly once even if a gateway callback is delivered
// twice or races with the return-URL handler.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB returns the underlying sql.DB.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new PENDING payment within an existing transaction
// and populates the generated ID and timestamps on p.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount_cents, method, provider_order_ref, status)
	           VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.BookingID, p.AmountCents, p.Method, p.ProviderOrderRef, p.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return r.scanOneTx(ctx, tx, p.ID, p)
}

// GetByOrderRefTx loads a payment by its gateway order reference, locked
// FOR UPDATE, used by HandleCallback before the CAS update.
func (r *PaymentRepo) GetByOrderRefTx(ctx context.Context, tx *sql.Tx, orderRef string) (*model.Payment, error) {
	const q = paymentSelectCols + ` FROM payments WHERE provider_order_ref = ? FOR UPDATE`
	p := &model.Payment{}
	if err := scanPayment(tx.QueryRowContext(ctx, q, orderRef), p); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Get loads a payment by ID without locking.
func (r *PaymentRepo) Get(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = paymentSelectCols + ` FROM payments WHERE id = ?`
	p := &model.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, q, id), p); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetActiveForBookingTx returns the booking's PENDING or COMPLETED payment
// if one exists (at most one such payment per booking), locked FOR
// UPDATE so CreateIntent can supersede a stale PENDING payment without
// racing a concurrent CreateIntent call for the same booking.
func (r *PaymentRepo) GetActiveForBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (*model.Payment, error) {
	const q = paymentSelectCols + ` FROM payments WHERE booking_id = ? AND status IN ('PENDING', 'COMPLETED') ORDER BY id DESC LIMIT 1 FOR UPDATE`
	p := &model.Payment{}
	if err := scanPayment(tx.QueryRowContext(ctx, q, bookingID), p); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// CompareAndSetStatusTx performs the exactly-once settlement update: the
// payment transitions from PENDING to a terminal status only if it is
// still PENDING. txnID and paidAt are recorded only on the COMPLETED
// path. Returns false (no error) when the row had already left PENDING.
func (r *PaymentRepo) CompareAndSetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, toStatus model.PaymentStatus, providerTxnID *string) (bool, error) {
	var q string
	var args []interface{}
	if toStatus == model.PaymentCompleted {
		q = `UPDATE payments SET status = ?, provider_txn_id = ?, paid_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		     WHERE id = ? AND status = 'PENDING'`
		args = []interface{}{toStatus, providerTxnID, id}
	} else {
		q = `UPDATE payments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'PENDING'`
		args = []interface{}{toStatus, id}
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkRefundedTx transitions a COMPLETED payment to REFUNDED.
func (r *PaymentRepo) MarkRefundedTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `UPDATE payments SET status = 'REFUNDED', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'COMPLETED'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

const paymentSelectCols = `SELECT id, booking_id, amount_cents, method, provider_order_ref, provider_txn_id, status, paid_at, created_at, updated_at`

func scanPayment(row rowScanner, p *model.Payment) error {
	var txnID sql.NullString
	var paidAt sql.NullTime
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Method, &p.ProviderOrderRef, &txnID, &p.Status, &paidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	if txnID.Valid {
		t := txnID.String
		p.ProviderTxnID = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaidAt = &t
	}
	return nil
}

func (r *PaymentRepo) scanOneTx(ctx context.Context, tx *sql.Tx, id uint64, p *model.Payment) error {
	const q = paymentSelectCols + ` FROM payments WHERE id = ?`
	return scanPayment(tx.QueryRowContext(ctx, q, id), p)
}

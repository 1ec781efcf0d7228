package repository

import (
	"context"
	"database/sql"

	"github.com/merobus/merobus-backend/internal/model"
)

// PaymentRepo provides access to the payments table. A payment row is
// the stored expectation a provider callback is verified against.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreatePending inserts a PENDING payment row.
func (r *PaymentRepo) CreatePending(ctx context.Context, p *model.Payment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (order_id, booking_id, user_id, amount_paisa, method, status)
		 VALUES (?,?,?,?,?,?)`,
		p.OrderID, p.BookingID, p.UserID, p.AmountPaisa, p.Method, model.PaymentPending)
	if err != nil {
		return err
	}
	p.Status = model.PaymentPending
	return nil
}

// GetByOrderID fetches a payment by its order identifier.
// ErrPaymentNotFound when no row matches.
func (r *PaymentRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	const q = `SELECT order_id, booking_id, user_id, amount_paisa, method, status, transaction_id, created_at, updated_at
	           FROM payments WHERE order_id = ?`
	var (
		p     model.Payment
		txnID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, orderID).Scan(
		&p.OrderID, &p.BookingID, &p.UserID, &p.AmountPaisa, &p.Method, &p.Status,
		&txnID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if txnID.Valid {
		s := txnID.String
		p.TransactionID = &s
	}
	return &p, nil
}

// Fail marks the payment FAILED. The booking stays PENDING; the rider
// can initiate a new payment for it.
func (r *PaymentRepo) Fail(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE order_id = ?`, model.PaymentFailed, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByOrderID(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

// Complete marks the payment COMPLETED with the provider transaction
// id and flips its booking to CONFIRMED, in one transaction. A caller
// must have verified the provider data first. When a concurrent
// callback got there first, ErrPaymentSettled is returned so only one
// caller proceeds to the completion side effects; the locking SELECT
// serializes the racers.
func (r *PaymentRepo) Complete(ctx context.Context, orderID, transactionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var (
		bookingID uint64
		status    string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT booking_id, status FROM payments WHERE order_id = ? FOR UPDATE`, orderID).
		Scan(&bookingID, &status)
	if err == sql.ErrNoRows {
		return ErrPaymentNotFound
	}
	if err != nil {
		return err
	}
	if status == model.PaymentCompleted {
		return ErrPaymentSettled
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, transaction_id = ? WHERE order_id = ?`,
		model.PaymentCompleted, transactionID, orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`,
		model.BookingConfirmed, bookingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

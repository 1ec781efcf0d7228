package model

import "time"

// Payment status values.
const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// Payment tracks an expected payment for a booking.  A row is created
// PENDING when the rider initiates payment and moves to COMPLETED only
// after the provider callback's transaction id, amount and status all
// match what we stored.
//
// Fields:
//  OrderID       – opaque order identifier handed to the provider.
//  BookingID     – booking being paid for.
//  UserID        – paying user.
//  AmountPaisa   – expected amount in minor units.
//  Method        – payment method name (e.g. "Khalti").
//  Status        – PENDING, COMPLETED or FAILED.
//  TransactionID – provider transaction id, set on completion.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Payment struct {
	OrderID       string    // payments.order_id (uuid)
	BookingID     uint64    // payments.booking_id
	UserID        uint64    // payments.user_id
	AmountPaisa   uint64    // payments.amount_paisa
	Method        string    // payments.method
	Status        string    // payments.status
	TransactionID *string   // payments.transaction_id (nullable)
	CreatedAt     time.Time // payments.created_at
	UpdatedAt     time.Time // payments.updated_at
}

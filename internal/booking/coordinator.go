// Package booking coordinates the booking lifecycle: seat claims,
// payment initiation and verification, cancellation, and the
// notifications and events that follow each state change.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/observability"
	"github.com/merobus/merobus-backend/internal/queue"
	"github.com/merobus/merobus-backend/internal/repository"
)

// SeatLedger is the atomic verify-and-claim of seats for a vehicle and
// service day. repository.BookingRepo is the production implementation.
type SeatLedger interface {
	TryClaim(ctx context.Context, b *model.Booking) (*model.Booking, error)
}

// BookingStore is the subset of booking persistence the coordinator
// needs beyond the claim itself.
type BookingStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID uint64) error
}

// PaymentStore persists payment expectations and outcomes.
type PaymentStore interface {
	CreatePending(ctx context.Context, p *model.Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	Fail(ctx context.Context, orderID string) error
	Complete(ctx context.Context, orderID, transactionID string) error
}

// VerifiedPayment is the provider's record of a payment, fetched
// server-side during callback handling.
type VerifiedPayment struct {
	Status        string
	TransactionID string
	AmountPaisa   uint64
}

// PaymentProvider looks up a payment at the provider by the callback
// token. Client-supplied callback parameters are never trusted
// directly; completion requires this lookup to match the stored
// expectation.
type PaymentProvider interface {
	Verify(ctx context.Context, token string) (*VerifiedPayment, error)
}

// Notifier records a notification for a user. Delivery failures must
// not fail the booking operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, title, body string) error
}

// EventPublisher pushes booking events to the message broker, best
// effort.
type EventPublisher interface {
	BookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error
	BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// providerStatusCompleted is the provider status string that marks a
// payment as settled.
const providerStatusCompleted = "Completed"

// sideEffectTimeout bounds the post-commit notification and event
// publishing that runs detached from the request.
const sideEffectTimeout = 10 * time.Second

// Coordinator drives booking state transitions. The ledger claim and
// the payment completion are the only steps that can fail a request;
// everything after a successful commit (notifications, broker events)
// is best effort and runs detached.
type Coordinator struct {
	Ledger   SeatLedger
	Bookings BookingStore
	Payments PaymentStore
	Provider PaymentProvider
	Notifier Notifier
	Events   EventPublisher
	Logger   *slog.Logger
}

// CreateBooking validates the request and claims its seats through the
// ledger. On success the rider is notified and a booking.created event
// is published asynchronously; the returned booking is PENDING until
// payment confirms it.
func (c *Coordinator) CreateBooking(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if len(b.SeatNos) == 0 {
		return nil, ErrSeatsRequired
	}
	for _, n := range b.SeatNos {
		if n == 0 {
			return nil, ErrInvalidSeat
		}
	}
	if b.VehicleID == 0 || b.RiderID == 0 || b.ServiceDate.IsZero() {
		return nil, ErrMissingFields
	}

	created, err := c.Ledger.TryClaim(ctx, b)
	if err != nil {
		var conflict *repository.SeatConflictError
		if errors.As(err, &conflict) {
			observability.SeatConflicts.Inc()
		}
		return nil, err
	}
	observability.BookingsCreated.Inc()
	c.Logger.Info("booking created",
		"booking_id", created.ID,
		"vehicle_id", created.VehicleID,
		"rider_id", created.RiderID,
		"seats", created.SeatNos,
	)

	go c.afterCreate(created)
	return created, nil
}

func (c *Coordinator) afterCreate(b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	body := fmt.Sprintf("Seats %s reserved for %s. Complete payment to confirm.",
		joinSeats(b.SeatNos), b.ServiceDate.Format("2006-01-02"))
	if err := c.Notifier.Notify(ctx, b.RiderID, "Booking received", body); err != nil {
		c.Logger.Warn("booking notification failed", "booking_id", b.ID, "error", err)
	}
	if c.Events != nil {
		ev := queue.BookingCreatedEvent{
			BookingID:      b.ID,
			VehicleID:      b.VehicleID,
			RiderID:        b.RiderID,
			ServiceDate:    b.ServiceDate.Format("2006-01-02"),
			Seats:          b.SeatNos,
			TotalFarePaisa: b.TotalFare,
			CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := c.Events.BookingCreated(ctx, ev); err != nil {
			c.Logger.Warn("booking event publish failed", "booking_id", b.ID, "error", err)
		}
	}
}

// InitiatePayment creates a PENDING payment expectation for a booking
// and returns it. The order id handed to the provider is a fresh UUID;
// the expected amount is the booking's total fare.
func (c *Coordinator) InitiatePayment(ctx context.Context, bookingID, userID uint64, method string) (*model.Payment, error) {
	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RiderID != userID {
		return nil, ErrNotOwner
	}
	switch b.Status {
	case model.BookingConfirmed:
		return nil, ErrAlreadyConfirmed
	case model.BookingCancelled:
		return nil, ErrCancelled
	}

	p := &model.Payment{
		OrderID:     uuid.NewString(),
		BookingID:   b.ID,
		UserID:      userID,
		AmountPaisa: b.TotalFare,
		Method:      method,
	}
	if err := c.Payments.CreatePending(ctx, p); err != nil {
		return nil, err
	}
	c.Logger.Info("payment initiated",
		"order_id", p.OrderID, "booking_id", b.ID, "amount_paisa", p.AmountPaisa, "method", method)
	return p, nil
}

// ConfirmPayment handles the provider callback for an order. The
// provider's record must show a completed payment whose transaction id
// is set and whose amount equals the stored expectation; only then
// does the payment complete and the booking flip to CONFIRMED.
// Re-confirming an already completed payment is a no-op returning the
// completed payment, so duplicate callbacks are harmless.
func (c *Coordinator) ConfirmPayment(ctx context.Context, orderID, token string) (*model.Payment, error) {
	p, err := c.Payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if p.Status == model.PaymentCompleted {
		return p, nil
	}

	v, err := c.Provider.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("provider lookup: %w", err)
	}
	if v.Status != providerStatusCompleted || v.TransactionID == "" || v.AmountPaisa != p.AmountPaisa {
		c.Logger.Warn("payment verification mismatch",
			"order_id", orderID,
			"provider_status", v.Status,
			"provider_amount", v.AmountPaisa,
			"expected_amount", p.AmountPaisa,
		)
		if err := c.Payments.Fail(ctx, orderID); err != nil {
			c.Logger.Error("marking payment failed", "order_id", orderID, "error", err)
		}
		return nil, ErrVerificationFailed
	}

	if err := c.Payments.Complete(ctx, orderID, v.TransactionID); err != nil {
		if errors.Is(err, repository.ErrPaymentSettled) {
			// A concurrent callback completed the payment first; it
			// owns the notification and event.
			return c.Payments.GetByOrderID(ctx, orderID)
		}
		return nil, err
	}
	observability.PaymentsCompleted.Inc()
	c.Logger.Info("payment completed",
		"order_id", orderID, "booking_id", p.BookingID, "transaction_id", v.TransactionID)

	go c.afterConfirm(p, v.TransactionID)

	return c.Payments.GetByOrderID(ctx, orderID)
}

func (c *Coordinator) afterConfirm(p *model.Payment, transactionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	body := fmt.Sprintf("Payment of Rs. %d.%02d received. Your booking is confirmed.",
		p.AmountPaisa/100, p.AmountPaisa%100)
	if err := c.Notifier.Notify(ctx, p.UserID, "Booking confirmed", body); err != nil {
		c.Logger.Warn("confirmation notification failed", "booking_id", p.BookingID, "error", err)
	}
	if c.Events != nil {
		ev := queue.BookingConfirmedEvent{
			BookingID:     p.BookingID,
			RiderID:       p.UserID,
			OrderID:       p.OrderID,
			TransactionID: transactionID,
			AmountPaisa:   p.AmountPaisa,
			ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := c.Events.BookingConfirmed(ctx, ev); err != nil {
			c.Logger.Warn("confirmation event publish failed", "booking_id", p.BookingID, "error", err)
		}
	}
}

// CancelBooking cancels a rider's booking and releases its seats.
// Cancelling an already cancelled booking is a no-op.
func (c *Coordinator) CancelBooking(ctx context.Context, bookingID, userID uint64) error {
	b, err := c.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.RiderID != userID {
		return ErrNotOwner
	}
	if b.Status == model.BookingCancelled {
		return nil
	}
	if err := c.Bookings.Cancel(ctx, bookingID); err != nil {
		return err
	}
	c.Logger.Info("booking cancelled", "booking_id", bookingID, "rider_id", userID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		body := fmt.Sprintf("Your booking for %s was cancelled and seats %s released.",
			b.ServiceDate.Format("2006-01-02"), joinSeats(b.SeatNos))
		if err := c.Notifier.Notify(ctx, userID, "Booking cancelled", body); err != nil {
			c.Logger.Warn("cancellation notification failed", "booking_id", bookingID, "error", err)
		}
	}()
	return nil
}

func joinSeats(seats []uint32) string {
	parts := make([]string, len(seats))
	for i, n := range seats {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

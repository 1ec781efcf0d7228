package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/queue"
	"github.com/merobus/merobus-backend/internal/repository"
)

// ----- fakes -----

type fakeLedger struct {
	claimErr error
	claimed  *model.Booking
}

func (f *fakeLedger) TryClaim(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	out := *b
	out.ID = 101
	out.Status = model.BookingPending
	out.ServiceDate = model.ServiceDay(b.ServiceDate)
	out.CreatedAt = time.Now().UTC()
	f.claimed = &out
	return &out, nil
}

type fakeBookings struct {
	byID      map[uint64]*model.Booking
	cancelled []uint64
}

func (f *fakeBookings) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) Cancel(ctx context.Context, id uint64) error {
	f.cancelled = append(f.cancelled, id)
	f.byID[id].Status = model.BookingCancelled
	return nil
}

type fakePayments struct {
	byOrder   map[string]*model.Payment
	failed    []string
	completed []string

	// stalePending makes the next N reads report PENDING regardless of
	// the stored status, mimicking a callback racing a concurrent
	// completion it has not observed yet.
	stalePending int
}

func (f *fakePayments) CreatePending(ctx context.Context, p *model.Payment) error {
	p.Status = model.PaymentPending
	cp := *p
	f.byOrder[p.OrderID] = &cp
	return nil
}

func (f *fakePayments) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	p, ok := f.byOrder[orderID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	if f.stalePending > 0 {
		f.stalePending--
		cp.Status = model.PaymentPending
		cp.TransactionID = nil
	}
	return &cp, nil
}

func (f *fakePayments) Fail(ctx context.Context, orderID string) error {
	f.failed = append(f.failed, orderID)
	f.byOrder[orderID].Status = model.PaymentFailed
	return nil
}

func (f *fakePayments) Complete(ctx context.Context, orderID, transactionID string) error {
	p := f.byOrder[orderID]
	if p.Status == model.PaymentCompleted {
		return repository.ErrPaymentSettled
	}
	f.completed = append(f.completed, orderID)
	p.Status = model.PaymentCompleted
	p.TransactionID = &transactionID
	return nil
}

type fakeProvider struct {
	resp   *VerifiedPayment
	err    error
	called bool
}

func (f *fakeProvider) Verify(ctx context.Context, token string) (*VerifiedPayment, error) {
	f.called = true
	return f.resp, f.err
}

type fakeNotifier struct {
	titles chan string
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID uint64, title, body string) error {
	if f.err != nil {
		return f.err
	}
	select {
	case f.titles <- title:
	default:
	}
	return nil
}

type fakeEvents struct {
	created   chan queue.BookingCreatedEvent
	confirmed chan queue.BookingConfirmedEvent
}

func (f *fakeEvents) BookingCreated(ctx context.Context, ev queue.BookingCreatedEvent) error {
	select {
	case f.created <- ev:
	default:
	}
	return nil
}

func (f *fakeEvents) BookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	select {
	case f.confirmed <- ev:
	default:
	}
	return nil
}

type testEnv struct {
	coord    *Coordinator
	ledger   *fakeLedger
	bookings *fakeBookings
	payments *fakePayments
	provider *fakeProvider
	notifier *fakeNotifier
	events   *fakeEvents
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledger:   &fakeLedger{},
		bookings: &fakeBookings{byID: map[uint64]*model.Booking{}},
		payments: &fakePayments{byOrder: map[string]*model.Payment{}},
		provider: &fakeProvider{},
		notifier: &fakeNotifier{titles: make(chan string, 8)},
		events: &fakeEvents{
			created:   make(chan queue.BookingCreatedEvent, 8),
			confirmed: make(chan queue.BookingConfirmedEvent, 8),
		},
	}
	env.coord = &Coordinator{
		Ledger:   env.ledger,
		Bookings: env.bookings,
		Payments: env.payments,
		Provider: env.provider,
		Notifier: env.notifier,
		Events:   env.events,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return env
}

func validBooking() *model.Booking {
	return &model.Booking{
		VehicleID:   1,
		RiderID:     10,
		ServiceDate: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
		SeatNos:     []uint32{1, 2},
		TotalFare:   50000,
	}
}

func waitFor[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

// ----- CreateBooking -----

func TestCreateBookingRequiresSeats(t *testing.T) {
	env := newTestEnv()
	b := validBooking()
	b.SeatNos = nil
	_, err := env.coord.CreateBooking(context.Background(), b)
	if !errors.Is(err, ErrSeatsRequired) {
		t.Fatalf("err = %v, want ErrSeatsRequired", err)
	}
	if env.ledger.claimed != nil {
		t.Error("ledger was reached despite empty seat selection")
	}
}

func TestCreateBookingRejectsSeatZero(t *testing.T) {
	env := newTestEnv()
	b := validBooking()
	b.SeatNos = []uint32{0, 1}
	if _, err := env.coord.CreateBooking(context.Background(), b); !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("err = %v, want ErrInvalidSeat", err)
	}
	b = validBooking()
	b.SeatNos = []uint32{0}
	if _, err := env.coord.CreateBooking(context.Background(), b); !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("err = %v, want ErrInvalidSeat", err)
	}
	if env.ledger.claimed != nil {
		t.Error("ledger was reached despite seat number zero")
	}
}

func TestCreateBookingRequiresFields(t *testing.T) {
	env := newTestEnv()
	b := validBooking()
	b.VehicleID = 0
	if _, err := env.coord.CreateBooking(context.Background(), b); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("err = %v, want ErrMissingFields", err)
	}
	b = validBooking()
	b.ServiceDate = time.Time{}
	if _, err := env.coord.CreateBooking(context.Background(), b); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("err = %v, want ErrMissingFields", err)
	}
}

func TestCreateBookingPropagatesSeatConflict(t *testing.T) {
	env := newTestEnv()
	env.ledger.claimErr = &repository.SeatConflictError{Seats: []uint32{2}}

	_, err := env.coord.CreateBooking(context.Background(), validBooking())
	var conflict *repository.SeatConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want SeatConflictError", err)
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != 2 {
		t.Errorf("conflicting seats = %v, want [2]", conflict.Seats)
	}
}

func TestCreateBookingNotifiesAndPublishes(t *testing.T) {
	env := newTestEnv()
	created, err := env.coord.CreateBooking(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if created.ID == 0 || created.Status != model.BookingPending {
		t.Errorf("unexpected booking %+v", created)
	}

	title := waitFor(t, env.notifier.titles, "booking notification")
	if title != "Booking received" {
		t.Errorf("notification title %q", title)
	}
	ev := waitFor(t, env.events.created, "booking.created event")
	if ev.BookingID != created.ID || len(ev.Seats) != 2 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestCreateBookingSurvivesNotifyFailure(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("notification store down")

	created, err := env.coord.CreateBooking(context.Background(), validBooking())
	if err != nil {
		t.Fatalf("CreateBooking failed because of notifier: %v", err)
	}
	// The event still goes out even when the notification fails.
	ev := waitFor(t, env.events.created, "booking.created event")
	if ev.BookingID != created.ID {
		t.Errorf("event booking id %d, want %d", ev.BookingID, created.ID)
	}
}

// ----- InitiatePayment -----

func TestInitiatePayment(t *testing.T) {
	env := newTestEnv()
	env.bookings.byID[101] = &model.Booking{
		ID: 101, RiderID: 10, TotalFare: 50000, Status: model.BookingPending,
		ServiceDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	}

	p, err := env.coord.InitiatePayment(context.Background(), 101, 10, "Khalti")
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	if p.OrderID == "" {
		t.Error("order id not assigned")
	}
	if p.AmountPaisa != 50000 {
		t.Errorf("amount = %d, want booking fare 50000", p.AmountPaisa)
	}
	if p.Status != model.PaymentPending {
		t.Errorf("status = %q, want PENDING", p.Status)
	}
}

func TestInitiatePaymentOwnership(t *testing.T) {
	env := newTestEnv()
	env.bookings.byID[101] = &model.Booking{ID: 101, RiderID: 10, Status: model.BookingPending}

	if _, err := env.coord.InitiatePayment(context.Background(), 101, 99, "Khalti"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if _, err := env.coord.InitiatePayment(context.Background(), 404, 10, "Khalti"); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Fatalf("err = %v, want ErrBookingNotFound", err)
	}
}

func TestInitiatePaymentRejectsSettledBookings(t *testing.T) {
	env := newTestEnv()
	env.bookings.byID[1] = &model.Booking{ID: 1, RiderID: 10, Status: model.BookingConfirmed}
	env.bookings.byID[2] = &model.Booking{ID: 2, RiderID: 10, Status: model.BookingCancelled}

	if _, err := env.coord.InitiatePayment(context.Background(), 1, 10, "Khalti"); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("err = %v, want ErrAlreadyConfirmed", err)
	}
	if _, err := env.coord.InitiatePayment(context.Background(), 2, 10, "Khalti"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

// ----- ConfirmPayment -----

func pendingPayment(env *testEnv) *model.Payment {
	p := &model.Payment{
		OrderID: "order-1", BookingID: 101, UserID: 10,
		AmountPaisa: 50000, Method: "Khalti", Status: model.PaymentPending,
	}
	env.payments.byOrder[p.OrderID] = p
	return p
}

func TestConfirmPaymentSuccess(t *testing.T) {
	env := newTestEnv()
	pendingPayment(env)
	env.provider.resp = &VerifiedPayment{Status: "Completed", TransactionID: "txn-9", AmountPaisa: 50000}

	p, err := env.coord.ConfirmPayment(context.Background(), "order-1", "pidx-1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if p.Status != model.PaymentCompleted {
		t.Errorf("status = %q, want COMPLETED", p.Status)
	}
	if len(env.payments.completed) != 1 {
		t.Errorf("Complete called %d times, want 1", len(env.payments.completed))
	}
	title := waitFor(t, env.notifier.titles, "confirmation notification")
	if title != "Booking confirmed" {
		t.Errorf("notification title %q", title)
	}
	ev := waitFor(t, env.events.confirmed, "booking.confirmed event")
	if ev.TransactionID != "txn-9" || ev.AmountPaisa != 50000 {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	env := newTestEnv()
	p := pendingPayment(env)
	p.Status = model.PaymentCompleted

	got, err := env.coord.ConfirmPayment(context.Background(), "order-1", "pidx-1")
	if err != nil {
		t.Fatalf("ConfirmPayment on completed payment: %v", err)
	}
	if got.Status != model.PaymentCompleted {
		t.Errorf("status = %q", got.Status)
	}
	if env.provider.called {
		t.Error("provider consulted for an already completed payment")
	}
	if len(env.payments.completed) != 0 {
		t.Error("Complete called again on completed payment")
	}
}

func TestConfirmPaymentConcurrentCallback(t *testing.T) {
	env := newTestEnv()
	p := pendingPayment(env)
	txn := "txn-9"
	p.Status = model.PaymentCompleted
	p.TransactionID = &txn
	// This caller still sees the payment as PENDING; the other callback
	// wins the completion underneath it.
	env.payments.stalePending = 1
	env.provider.resp = &VerifiedPayment{Status: "Completed", TransactionID: txn, AmountPaisa: 50000}

	got, err := env.coord.ConfirmPayment(context.Background(), "order-1", "pidx-1")
	if err != nil {
		t.Fatalf("ConfirmPayment on lost race: %v", err)
	}
	if got.Status != model.PaymentCompleted {
		t.Errorf("status = %q, want COMPLETED", got.Status)
	}
	if len(env.payments.completed) != 0 {
		t.Error("losing caller recorded a second completion")
	}
	select {
	case title := <-env.notifier.titles:
		t.Errorf("losing caller sent notification %q", title)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfirmPaymentVerificationMismatch(t *testing.T) {
	cases := []struct {
		name string
		resp VerifiedPayment
	}{
		{"wrong status", VerifiedPayment{Status: "Pending", TransactionID: "t", AmountPaisa: 50000}},
		{"missing transaction id", VerifiedPayment{Status: "Completed", AmountPaisa: 50000}},
		{"amount mismatch", VerifiedPayment{Status: "Completed", TransactionID: "t", AmountPaisa: 49999}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			pendingPayment(env)
			resp := tc.resp
			env.provider.resp = &resp

			_, err := env.coord.ConfirmPayment(context.Background(), "order-1", "pidx-1")
			if !errors.Is(err, ErrVerificationFailed) {
				t.Fatalf("err = %v, want ErrVerificationFailed", err)
			}
			if len(env.payments.failed) != 1 {
				t.Errorf("Fail called %d times, want 1", len(env.payments.failed))
			}
			if len(env.payments.completed) != 0 {
				t.Error("Complete called despite mismatch")
			}
		})
	}
}

func TestConfirmPaymentProviderError(t *testing.T) {
	env := newTestEnv()
	pendingPayment(env)
	env.provider.err = errors.New("provider timeout")

	_, err := env.coord.ConfirmPayment(context.Background(), "order-1", "pidx-1")
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
	// A transient provider error is not a verification failure; the
	// payment stays PENDING so the callback can be retried.
	if len(env.payments.failed) != 0 {
		t.Error("payment marked failed on transient provider error")
	}
}

// ----- CancelBooking -----

func TestCancelBooking(t *testing.T) {
	env := newTestEnv()
	env.bookings.byID[101] = &model.Booking{
		ID: 101, RiderID: 10, Status: model.BookingPending,
		SeatNos:     []uint32{3, 4},
		ServiceDate: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
	}

	if err := env.coord.CancelBooking(context.Background(), 101, 10); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if len(env.bookings.cancelled) != 1 {
		t.Fatalf("Cancel called %d times, want 1", len(env.bookings.cancelled))
	}
	title := waitFor(t, env.notifier.titles, "cancellation notification")
	if title != "Booking cancelled" {
		t.Errorf("notification title %q", title)
	}

	// Cancelling again is a no-op.
	if err := env.coord.CancelBooking(context.Background(), 101, 10); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if len(env.bookings.cancelled) != 1 {
		t.Error("Cancel called again for an already cancelled booking")
	}
}

func TestCancelBookingOwnership(t *testing.T) {
	env := newTestEnv()
	env.bookings.byID[101] = &model.Booking{ID: 101, RiderID: 10, Status: model.BookingPending}

	if err := env.coord.CancelBooking(context.Background(), 101, 99); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if len(env.bookings.cancelled) != 0 {
		t.Error("Cancel reached the store for a foreign booking")
	}
}

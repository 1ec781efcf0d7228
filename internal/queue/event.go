// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// Event kinds carried in the Envelope.
const (
	KindBookingCreated   = "booking.created"
	KindBookingConfirmed = "booking.confirmed"
)

// EventsQueueName is the durable queue all booking events go through.
const EventsQueueName = "booking.events"

// Envelope wraps every published event so a single queue can carry
// multiple kinds.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// BookingCreatedEvent is published when seats are successfully claimed.
// It contains enough information for downstream consumers to log,
// notify, or trigger analytics without querying the primary database.
type BookingCreatedEvent struct {
	BookingID      uint64   `json:"booking_id"`
	VehicleID      uint64   `json:"vehicle_id"`
	RiderID        uint64   `json:"rider_id"`
	ServiceDate    string   `json:"service_date"`
	Seats          []uint32 `json:"seats"`
	TotalFarePaisa uint64   `json:"total_fare_paisa"`
	CreatedAt      string   `json:"created_at"`
}

// BookingConfirmedEvent is published when a payment callback verifies
// successfully and the booking flips to CONFIRMED.
type BookingConfirmedEvent struct {
	BookingID     uint64 `json:"booking_id"`
	RiderID       uint64 `json:"rider_id"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	AmountPaisa   uint64 `json:"amount_paisa"`
	ConfirmedAt   string `json:"confirmed_at"`
}

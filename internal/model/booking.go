package model

import "time"

// Booking status values.  A booking is created PENDING, becomes
// CONFIRMED when the payment callback verifies successfully, and may
// be CANCELLED which releases its seats.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Booking records a rider's claim on one or more seats of a vehicle
// for a single service date.  The seat set is immutable once created;
// cancellation, not edit, releases seats.
//
// Fields:
//  ID           – primary key identifier.
//  VehicleID    – vehicle being booked.
//  RiderID      – user who made the booking.
//  ServiceDate  – calendar day of travel (time-of-day discarded).
//  PickupPoint  – where the rider boards.
//  DropoffPoint – where the rider gets off.
//  TotalFare    – supplied total fare in paisa (minor units).
//  Status       – PENDING, CONFIRMED or CANCELLED.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Booking struct {
	ID           uint64    // bookings.id
	VehicleID    uint64    // bookings.vehicle_id
	RiderID      uint64    // bookings.rider_id
	ServiceDate  time.Time // bookings.service_date (DATE column)
	PickupPoint  string    // bookings.pickup_point
	DropoffPoint string    // bookings.dropoff_point
	TotalFare    uint64    // bookings.total_fare_paisa
	Status       string    // bookings.status
	SeatNos      []uint32  // claimed seat numbers (from booked_seats)
	CreatedAt    time.Time // bookings.created_at
	UpdatedAt    time.Time // bookings.updated_at
}

// BookedSeat is a single seat claim.  VehicleID and ServiceDate are
// denormalized from the booking so the database can carry a UNIQUE
// key over (vehicle_id, service_date, seat_no); that key, not the
// application-level availability check, is what makes double booking
// impossible.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – booking this claim belongs to.
//  VehicleID   – vehicle the seat is on.
//  ServiceDate – calendar day the seat is claimed for.
//  SeatNo      – claimed seat number.
type BookedSeat struct {
	ID          uint64    // booked_seats.id
	BookingID   uint64    // booked_seats.booking_id
	VehicleID   uint64    // booked_seats.vehicle_id
	ServiceDate time.Time // booked_seats.service_date
	SeatNo      uint32    // booked_seats.seat_no
}

// ServiceDay normalizes a timestamp to the start of its UTC calendar
// day.  Any two timestamps on the same day map to the same service
// date and therefore collide on the seat ledger.
func ServiceDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

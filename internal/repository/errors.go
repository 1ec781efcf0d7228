// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP responses. SeatConflictError carries the seat numbers
// that collided so callers can tell the rider exactly which seats to
// pick differently.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrVehicleNotFound is returned when a vehicle lookup yields no rows.
var ErrVehicleNotFound = errors.New("vehicle not found")

// ErrBookingNotFound is returned when a booking lookup yields no rows.
var ErrBookingNotFound = errors.New("booking not found")

// ErrRouteNotFound is returned when a vehicle has no registered route.
var ErrRouteNotFound = errors.New("route not found")

// ErrPaymentNotFound is returned when no payment row matches an order id.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrPaymentSettled is returned when completing a payment that another
// caller already completed. The losing caller must not repeat the
// side effects of completion.
var ErrPaymentSettled = errors.New("payment already completed")

// ErrNoSeats is returned when a claim is attempted with no usable seat
// numbers at all.
var ErrNoSeats = errors.New("no seats requested")

// ErrPlateExists is returned when registering a vehicle with a plate
// number that is already taken.
var ErrPlateExists = errors.New("vehicle already exists")

// SeatConflictError reports that one or more requested seats are
// already claimed for the same vehicle and service date. It is
// terminal for the request; the rider should re-query availability
// and retry with different seats.
type SeatConflictError struct {
	Seats []uint32
}

func (e *SeatConflictError) Error() string {
	return "seats already booked: " + joinSeats(e.Seats)
}

// UnknownSeatsError reports seat numbers that are not part of the
// vehicle's registered seat map. Handlers should translate this into
// an HTTP 400 response.
type UnknownSeatsError struct {
	Seats []uint32
}

func (e *UnknownSeatsError) Error() string {
	return "seats not on vehicle seat map: " + joinSeats(e.Seats)
}

func joinSeats(seats []uint32) string {
	parts := make([]string, 0, len(seats))
	for _, s := range seats {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return strings.Join(parts, ", ")
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (1062), raised when an insert violates a unique constraint.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

package booking

import "errors"

var (
	// ErrSeatsRequired rejects a booking request with an empty seat
	// selection before any transaction opens.
	ErrSeatsRequired = errors.New("at least one seat must be selected")

	// ErrInvalidSeat rejects a booking request containing seat number
	// zero. Seat numbers start at one.
	ErrInvalidSeat = errors.New("seat numbers must be positive")

	// ErrMissingFields rejects a booking request lacking a vehicle,
	// rider or service date.
	ErrMissingFields = errors.New("vehicle, rider and service date are required")

	// ErrNotOwner is returned when a user acts on a booking that is not
	// theirs.
	ErrNotOwner = errors.New("booking belongs to another user")

	// ErrAlreadyConfirmed rejects payment initiation for a booking that
	// is already confirmed.
	ErrAlreadyConfirmed = errors.New("booking is already confirmed")

	// ErrCancelled rejects operations on a cancelled booking.
	ErrCancelled = errors.New("booking is cancelled")

	// ErrVerificationFailed is returned when the provider's record of a
	// payment does not match what was initiated.
	ErrVerificationFailed = errors.New("payment verification failed")
)

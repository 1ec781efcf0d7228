package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/booking"
	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/repository"
)

// BookingHandler serves booking creation, listing and cancellation.
type BookingHandler struct {
	Coordinator *booking.Coordinator
	Bookings    *repository.BookingRepo
	Vehicles    *repository.VehicleRepo
}

func NewBookingHandler(co *booking.Coordinator, b *repository.BookingRepo, v *repository.VehicleRepo) *BookingHandler {
	return &BookingHandler{Coordinator: co, Bookings: b, Vehicles: v}
}

type createBookingReq struct {
	VehicleID    uint64   `json:"vehicle_id"`
	Date         string   `json:"date"` // YYYY-MM-DD
	Seats        []uint32 `json:"seats"`
	PickupPoint  string   `json:"pickup_point"`
	DropoffPoint string   `json:"dropoff_point"`
	TotalFare    uint64   `json:"total_fare_paisa"`
}

type bookingPart struct {
	ID           uint64    `json:"id"`
	VehicleID    uint64    `json:"vehicle_id"`
	RiderID      uint64    `json:"rider_id"`
	Date         string    `json:"date"`
	Seats        []uint32  `json:"seats"`
	PickupPoint  string    `json:"pickup_point,omitempty"`
	DropoffPoint string    `json:"dropoff_point,omitempty"`
	TotalFare    uint64    `json:"total_fare_paisa"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func toBookingPart(b *model.Booking) bookingPart {
	return bookingPart{
		ID:           b.ID,
		VehicleID:    b.VehicleID,
		RiderID:      b.RiderID,
		Date:         b.ServiceDate.Format("2006-01-02"),
		Seats:        b.SeatNos,
		PickupPoint:  b.PickupPoint,
		DropoffPoint: b.DropoffPoint,
		TotalFare:    b.TotalFare,
		Status:       b.Status,
		CreatedAt:    b.CreatedAt,
	}
}

// Create claims seats for the authenticated rider. Conflicting seat
// requests get 409 with the exact seats that were taken.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}

	b := &model.Booking{
		VehicleID:    req.VehicleID,
		RiderID:      middleware.UserID(c),
		ServiceDate:  date,
		PickupPoint:  req.PickupPoint,
		DropoffPoint: req.DropoffPoint,
		TotalFare:    req.TotalFare,
		SeatNos:      req.Seats,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	created, err := h.Coordinator.CreateBooking(ctx, b)
	if err != nil {
		var conflict *repository.SeatConflictError
		var unknown *repository.UnknownSeatsError
		switch {
		case errors.Is(err, booking.ErrSeatsRequired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "At least one seat must be selected"})
		case errors.Is(err, booking.ErrInvalidSeat):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Seat numbers must be positive"})
		case errors.Is(err, booking.ErrMissingFields):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		case errors.Is(err, repository.ErrVehicleNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		case errors.As(err, &unknown):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seats", "seats": unknown.Seats})
		case errors.As(err, &conflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "Seats already booked", "seats": conflict.Seats})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"booking":       toBookingPart(created),
		"claimed_seats": created.SeatNos,
	})
}

// Get returns one booking. Only the rider who made it or the owner of
// the booked vehicle may see it.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	uid := middleware.UserID(c)
	if b.RiderID != uid {
		v, err := h.Vehicles.GetByID(ctx, b.VehicleID)
		if err != nil || v.OwnerID != uid {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": toBookingPart(b)})
}

// ListMine returns the authenticated rider's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	page, perPage := pagination(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Bookings.ListByRider(ctx, middleware.UserID(c), page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingParts(list), "page": page})
}

// ListByVehicle returns bookings on a vehicle for its owner. An
// optional "date" query param narrows to one service day.
func (h *BookingHandler) ListByVehicle(c echo.Context) error {
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	page, perPage := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if v.OwnerID != middleware.UserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your vehicle"})
	}

	var list []model.Booking
	if ds := c.QueryParam("date"); ds != "" {
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
		list, err = h.Bookings.ListByVehicleAndDate(ctx, vehicleID, date, page, perPage)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	} else {
		list, err = h.Bookings.ListByVehicle(ctx, vehicleID, page, perPage)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": toBookingParts(list), "page": page})
}

// Cancel cancels the rider's booking and releases its seats.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err = h.Coordinator.CancelBooking(ctx, id, middleware.UserID(c))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
}

func toBookingParts(list []model.Booking) []bookingPart {
	out := make([]bookingPart, 0, len(list))
	for i := range list {
		out = append(out, toBookingPart(&list[i]))
	}
	return out
}

func pagination(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/repository"
)

// VehicleHandler serves vehicle registration, browsing and the per-day
// seat availability view.
type VehicleHandler struct {
	Vehicles *repository.VehicleRepo
	Routes   *repository.RouteRepo
	Bookings *repository.BookingRepo
	Perf     *repository.PerformanceRepo
}

func NewVehicleHandler(v *repository.VehicleRepo, r *repository.RouteRepo, b *repository.BookingRepo, p *repository.PerformanceRepo) *VehicleHandler {
	return &VehicleHandler{Vehicles: v, Routes: r, Bookings: b, Perf: p}
}

type registerVehicleReq struct {
	PlateNo            string    `json:"plate_no"`
	Model              string    `json:"model"`
	VehicleType        string    `json:"vehicle_type"`
	ScheduledDeparture time.Time `json:"scheduled_departure"`
	ScheduledArrival   time.Time `json:"scheduled_arrival"`
	SeatCount          uint32    `json:"seat_count"`
}

type vehiclePart struct {
	ID                 uint64     `json:"id"`
	OwnerID            uint64     `json:"owner_id"`
	PlateNo            string     `json:"plate_no"`
	Model              string     `json:"model"`
	VehicleType        string     `json:"vehicle_type"`
	ScheduledDeparture time.Time  `json:"scheduled_departure"`
	ScheduledArrival   time.Time  `json:"scheduled_arrival"`
	ActualDeparture    *time.Time `json:"actual_departure,omitempty"`
	ActualArrival      *time.Time `json:"actual_arrival,omitempty"`
	TimingCategory     string     `json:"timing_category,omitempty"`
	SeatCount          uint32     `json:"seat_count"`
}

func toVehiclePart(v *model.Vehicle) vehiclePart {
	return vehiclePart{
		ID:                 v.ID,
		OwnerID:            v.OwnerID,
		PlateNo:            v.PlateNo,
		Model:              v.Model,
		VehicleType:        v.VehicleType,
		ScheduledDeparture: v.ScheduledDeparture,
		ScheduledArrival:   v.ScheduledArrival,
		ActualDeparture:    v.ActualDeparture,
		ActualArrival:      v.ActualArrival,
		TimingCategory:     v.TimingCategory,
		SeatCount:          v.SeatCount,
	}
}

// Register creates a vehicle with its fixed seat map. Driver only.
func (h *VehicleHandler) Register(c echo.Context) error {
	var req registerVehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.PlateNo == "" || req.SeatCount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate_no and seat_count required"})
	}
	if req.ScheduledDeparture.IsZero() || req.ScheduledArrival.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled times required"})
	}

	v := &model.Vehicle{
		OwnerID:            middleware.UserID(c),
		PlateNo:            req.PlateNo,
		Model:              req.Model,
		VehicleType:        req.VehicleType,
		ScheduledDeparture: req.ScheduledDeparture,
		ScheduledArrival:   req.ScheduledArrival,
		SeatCount:          req.SeatCount,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Vehicles.Create(ctx, v); err != nil {
		if err == repository.ErrPlateExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "plate number already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create vehicle failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"vehicle": toVehiclePart(v)})
}

// List returns all vehicles, each with its route when one exists.
func (h *VehicleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	vehicles, err := h.Vehicles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		entry := echo.Map{"vehicle": toVehiclePart(v)}
		if d, err := h.Routes.GetByVehicle(ctx, v.ID); err == nil {
			entry["route"] = toRoutePart(d)
		}
		out = append(out, entry)
	}
	return c.JSON(http.StatusOK, echo.Map{"vehicles": out})
}

// Detail returns one vehicle with its route and timing statistics.
func (h *VehicleHandler) Detail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	resp := echo.Map{"vehicle": toVehiclePart(v)}
	if d, err := h.Routes.GetByVehicle(ctx, id); err == nil {
		resp["route"] = toRoutePart(d)
	}
	if p, err := h.Perf.Get(ctx, id); err == nil {
		resp["performance"] = toPerformancePart(p)
	}
	return c.JSON(http.StatusOK, resp)
}

type seatPart struct {
	SeatNo uint32 `json:"seat_no"`
	Booked bool   `json:"booked"`
}

// Seats returns the vehicle's seat map with per-seat availability for
// the requested date (query param "date", YYYY-MM-DD; defaults to
// today).
func (h *VehicleHandler) Seats(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	date := time.Now().UTC()
	if ds := c.QueryParam("date"); ds != "" {
		date, err = time.Parse("2006-01-02", ds)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	seatMap, err := h.Vehicles.SeatMap(ctx, id)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	booked, err := h.Bookings.BookedSeats(ctx, id, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	taken := make(map[uint32]bool, len(booked))
	for _, n := range booked {
		taken[n] = true
	}
	seats := make([]seatPart, 0, len(seatMap))
	for _, n := range seatMap {
		seats = append(seats, seatPart{SeatNo: n, Booked: taken[n]})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"vehicle_id": id,
		"date":       model.ServiceDay(date).Format("2006-01-02"),
		"seats":      seats,
	})
}

type performancePart struct {
	VehicleID             uint64    `json:"vehicle_id"`
	TotalTrips            uint64    `json:"total_trips"`
	Early                 uint64    `json:"early"`
	OnTime                uint64    `json:"on_time"`
	Late                  uint64    `json:"late"`
	EarlyStartLateArrival uint64    `json:"early_start_late_arrival"`
	LateStartEarlyArrival uint64    `json:"late_start_early_arrival"`
	GeneratedAt           time.Time `json:"generated_at"`
}

func toPerformancePart(p model.VehiclePerformance) performancePart {
	return performancePart{
		VehicleID:             p.VehicleID,
		TotalTrips:            p.TotalTrips,
		Early:                 p.EarlyCount,
		OnTime:                p.OnTimeCount,
		Late:                  p.LateCount,
		EarlyStartLateArrival: p.EarlyStartLateArrivalCount,
		LateStartEarlyArrival: p.LateStartEarlyArrivalCount,
		GeneratedAt:           p.GeneratedAt,
	}
}

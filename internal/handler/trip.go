package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/merobus/merobus-backend/internal/middleware"
	"github.com/merobus/merobus-backend/internal/observability"
	"github.com/merobus/merobus-backend/internal/repository"
	"github.com/merobus/merobus-backend/internal/trip"
)

// TripHandler serves trip start/end for drivers and the public timing
// statistics view.
type TripHandler struct {
	Aggregator *trip.Aggregator
	Vehicles   *repository.VehicleRepo
	Perf       *repository.PerformanceRepo
}

func NewTripHandler(a *trip.Aggregator, v *repository.VehicleRepo, p *repository.PerformanceRepo) *TripHandler {
	return &TripHandler{Aggregator: a, Vehicles: v, Perf: p}
}

// ownVehicle resolves the :id param to a vehicle owned by the caller.
// On failure it writes the error response and returns ok=false.
func (h *TripHandler) ownVehicle(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
		return 0, false
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	v, err := h.Vehicles.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "vehicle not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return 0, false
	}
	if v.OwnerID != middleware.UserID(c) {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "not your vehicle"})
		return 0, false
	}
	return id, true
}

// Start stamps the actual departure of the driver's vehicle. Starting
// again overwrites the previous stamp.
func (h *TripHandler) Start(c echo.Context) error {
	id, ok := h.ownVehicle(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	v, err := h.Aggregator.StartTrip(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start trip failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "trip started", "vehicle": toVehiclePart(v)})
}

// End stamps the arrival, classifies the trip and updates the
// vehicle's timing statistics.
func (h *TripHandler) End(c echo.Context) error {
	id, ok := h.ownVehicle(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()
	v, perf, err := h.Aggregator.EndTrip(ctx, id)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotStarted) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "trip has not been started"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "end trip failed"})
	}
	observability.TripsEnded.WithLabelValues(v.TimingCategory).Inc()
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "trip ended",
		"vehicle":     toVehiclePart(v),
		"performance": toPerformancePart(perf),
	})
}

// Performance returns a vehicle's rolling timing counters.
func (h *TripHandler) Performance(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid vehicle id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Perf.Get(ctx, id)
	if err != nil {
		if err == repository.ErrVehicleNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no finished trips for vehicle"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"performance": toPerformancePart(p)})
}

package trip

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/merobus/merobus-backend/internal/model"
	"github.com/merobus/merobus-backend/internal/repository"
)

// ErrTripNotStarted is returned by EndTrip when the vehicle has no
// actual departure stamped yet.
var ErrTripNotStarted = errors.New("trip has not been started")

// Aggregator stamps trip lifecycle timestamps and keeps the rolling
// per-vehicle performance counters consistent with them. EndTrip is
// the only writer of vehicle_performance and of the vehicle's
// timing_category; both are updated in the same transaction as the
// arrival timestamp so no partial state is ever observable.
type Aggregator struct {
	Vehicles *repository.VehicleRepo
	Perf     *repository.PerformanceRepo
	Logger   *slog.Logger
}

// NewAggregator wires an Aggregator from its repositories.
func NewAggregator(vehicles *repository.VehicleRepo, perf *repository.PerformanceRepo, logger *slog.Logger) *Aggregator {
	return &Aggregator{Vehicles: vehicles, Perf: perf, Logger: logger}
}

// StartTrip stamps the actual departure with the current time.
// Calling it again overwrites the previous stamp.
func (a *Aggregator) StartTrip(ctx context.Context, vehicleID uint64) (*model.Vehicle, error) {
	if err := a.Vehicles.SetActualDeparture(ctx, vehicleID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return a.Vehicles.GetByID(ctx, vehicleID)
}

// EndTrip stamps the actual arrival, classifies the finished trip,
// increments the matching performance counter and total-trip count,
// and writes the recomputed dominant category onto the vehicle, all
// in one transaction.
func (a *Aggregator) EndTrip(ctx context.Context, vehicleID uint64) (*model.Vehicle, model.VehiclePerformance, error) {
	var perf model.VehiclePerformance

	// Existence and started-state checks before any write.
	v, err := a.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, perf, err
	}
	if v.ActualDeparture == nil {
		return nil, perf, ErrTripNotStarted
	}

	tx, err := a.Vehicles.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, perf, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	v, err = a.Vehicles.SetActualArrivalTx(ctx, tx, vehicleID, now)
	if err != nil {
		return nil, perf, err
	}

	depDiff := v.ActualDeparture.Sub(v.ScheduledDeparture)
	arrDiff := v.ActualArrival.Sub(v.ScheduledArrival)
	category := Classify(depDiff, arrDiff)

	perf, err = a.Perf.RecordTripTx(ctx, tx, vehicleID, category)
	if err != nil {
		return nil, perf, err
	}
	dominant := Dominant(perf)
	if err := a.Vehicles.SetTimingCategoryTx(ctx, tx, vehicleID, dominant); err != nil {
		return nil, perf, err
	}
	if err := tx.Commit(); err != nil {
		return nil, perf, err
	}
	committed = true

	v.TimingCategory = dominant
	a.Logger.Info("trip ended",
		"vehicle_id", vehicleID,
		"category", category,
		"dominant", dominant,
		"dep_diff_ms", depDiff.Milliseconds(),
		"arr_diff_ms", arrDiff.Milliseconds(),
	)
	return v, perf, nil
}

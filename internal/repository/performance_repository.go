package repository

import (
	"context"
	"database/sql"

	"github.com/merobus/merobus-backend/internal/model"
)

// PerformanceRepo maintains the per-vehicle trip timing counters.
// There is exactly one row per vehicle, created on its first finished
// trip and incremented on every trip end after that.
type PerformanceRepo struct {
	db *sql.DB
}

// NewPerformanceRepo returns a PerformanceRepo bound to the database.
func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

// RecordTripTx increments the counter for the given timing category
// plus the total-trip count, creating the row if this is the
// vehicle's first trip, and returns the updated counters. Runs within
// the caller's transaction so the counter update, the trip-end
// timestamp and the dominant-category write commit or roll back as
// one unit.
func (r *PerformanceRepo) RecordTripTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, category string) (model.VehiclePerformance, error) {
	const upsert = `INSERT INTO vehicle_performance
	        (vehicle_id, total_trips, early_count, on_time_count, late_count,
	         early_start_late_arrival_count, late_start_early_arrival_count, generated_at)
	        VALUES (?, 1, ?, ?, ?, ?, ?, UTC_TIMESTAMP())
	        ON DUPLICATE KEY UPDATE
	          total_trips = total_trips + 1,
	          early_count = early_count + VALUES(early_count),
	          on_time_count = on_time_count + VALUES(on_time_count),
	          late_count = late_count + VALUES(late_count),
	          early_start_late_arrival_count = early_start_late_arrival_count + VALUES(early_start_late_arrival_count),
	          late_start_early_arrival_count = late_start_early_arrival_count + VALUES(late_start_early_arrival_count),
	          generated_at = UTC_TIMESTAMP()`
	inc := func(c string) int {
		if c == category {
			return 1
		}
		return 0
	}
	_, err := tx.ExecContext(ctx, upsert, vehicleID,
		inc(model.CategoryEarly), inc(model.CategoryOnTime), inc(model.CategoryLate),
		inc(model.CategoryEarlyStartLateArrival), inc(model.CategoryLateStartEarlyArrival))
	if err != nil {
		return model.VehiclePerformance{}, err
	}
	return r.getTx(ctx, tx, vehicleID)
}

func (r *PerformanceRepo) getTx(ctx context.Context, tx *sql.Tx, vehicleID uint64) (model.VehiclePerformance, error) {
	const q = `SELECT vehicle_id, total_trips, early_count, on_time_count, late_count,
	                  early_start_late_arrival_count, late_start_early_arrival_count, generated_at
	           FROM vehicle_performance WHERE vehicle_id = ?`
	var p model.VehiclePerformance
	err := tx.QueryRowContext(ctx, q, vehicleID).Scan(
		&p.VehicleID, &p.TotalTrips, &p.EarlyCount, &p.OnTimeCount, &p.LateCount,
		&p.EarlyStartLateArrivalCount, &p.LateStartEarlyArrivalCount, &p.GeneratedAt)
	return p, err
}

// Get returns the rolling counters for a vehicle. ErrVehicleNotFound
// is returned when the vehicle has no finished trips yet.
func (r *PerformanceRepo) Get(ctx context.Context, vehicleID uint64) (model.VehiclePerformance, error) {
	const q = `SELECT vehicle_id, total_trips, early_count, on_time_count, late_count,
	                  early_start_late_arrival_count, late_start_early_arrival_count, generated_at
	           FROM vehicle_performance WHERE vehicle_id = ?`
	var p model.VehiclePerformance
	err := r.db.QueryRowContext(ctx, q, vehicleID).Scan(
		&p.VehicleID, &p.TotalTrips, &p.EarlyCount, &p.OnTimeCount, &p.LateCount,
		&p.EarlyStartLateArrivalCount, &p.LateStartEarlyArrivalCount, &p.GeneratedAt)
	if err == sql.ErrNoRows {
		return p, ErrVehicleNotFound
	}
	return p, err
}

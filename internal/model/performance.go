package model

import "time"

// VehiclePerformance holds rolling per-vehicle trip timing counters.
// One row per vehicle, upserted on every trip end; never deleted.
//
// Fields:
//  VehicleID                  – vehicle the counters belong to.
//  TotalTrips                 – number of finished trips.
//  EarlyCount                 – trips that left and arrived early.
//  OnTimeCount                – trips with a zero diff on either side.
//  LateCount                  – trips that left and arrived late.
//  EarlyStartLateArrivalCount – left early, arrived late.
//  LateStartEarlyArrivalCount – left late, arrived early.
//  GeneratedAt                – when the row was last updated.
type VehiclePerformance struct {
	VehicleID                  uint64    // vehicle_performance.vehicle_id
	TotalTrips                 uint64    // vehicle_performance.total_trips
	EarlyCount                 uint64    // vehicle_performance.early_count
	OnTimeCount                uint64    // vehicle_performance.on_time_count
	LateCount                  uint64    // vehicle_performance.late_count
	EarlyStartLateArrivalCount uint64    // vehicle_performance.early_start_late_arrival_count
	LateStartEarlyArrivalCount uint64    // vehicle_performance.late_start_early_arrival_count
	GeneratedAt                time.Time // vehicle_performance.generated_at
}

// Count returns the counter for the named timing category.
func (p VehiclePerformance) Count(category string) uint64 {
	switch category {
	case CategoryEarly:
		return p.EarlyCount
	case CategoryOnTime:
		return p.OnTimeCount
	case CategoryLate:
		return p.LateCount
	case CategoryEarlyStartLateArrival:
		return p.EarlyStartLateArrivalCount
	case CategoryLateStartEarlyArrival:
		return p.LateStartEarlyArrivalCount
	default:
		return 0
	}
}

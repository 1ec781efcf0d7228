package model

import "time"

// Timing categories recorded per finished trip and rolled up onto the
// vehicle as its dominant category.  Order matters: when two counters
// tie, the category listed first here wins.
const (
	CategoryEarly                 = "early"
	CategoryOnTime                = "onTime"
	CategoryLate                  = "late"
	CategoryEarlyStartLateArrival = "earlyStartLateArrival"
	CategoryLateStartEarlyArrival = "lateStartEarlyArrival"
)

// TimingCategories lists all trip timing categories in tie-break order.
var TimingCategories = []string{
	CategoryEarly,
	CategoryOnTime,
	CategoryLate,
	CategoryEarlyStartLateArrival,
	CategoryLateStartEarlyArrival,
}

// Vehicle represents a scheduled passenger vehicle owned by a driver.
// Scheduled times describe the published timetable; actual times are
// stamped when the driver starts and ends a trip.  TimingCategory is
// derived from the vehicle's historical performance and never set
// directly by a caller.
//
// Fields:
//  ID                 – primary key identifier.
//  OwnerID            – driver account that registered the vehicle.
//  PlateNo            – unique registration plate.
//  Model              – manufacturer model string.
//  VehicleType        – kind of vehicle (BUS, MICRO, ...).
//  ScheduledDeparture – timetabled departure time.
//  ScheduledArrival   – timetabled arrival time.
//  ActualDeparture    – stamped when the trip starts (nullable).
//  ActualArrival      – stamped when the trip ends (nullable).
//  TimingCategory     – dominant historical timing category.
//  SeatCount          – number of seats in the fixed seat map.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Vehicle struct {
	ID                 uint64     // vehicles.id
	OwnerID            uint64     // vehicles.owner_id
	PlateNo            string     // vehicles.plate_no
	Model              string     // vehicles.model
	VehicleType        string     // vehicles.vehicle_type
	ScheduledDeparture time.Time  // vehicles.scheduled_departure
	ScheduledArrival   time.Time  // vehicles.scheduled_arrival
	ActualDeparture    *time.Time // vehicles.actual_departure (nullable)
	ActualArrival      *time.Time // vehicles.actual_arrival (nullable)
	TimingCategory     string     // vehicles.timing_category
	SeatCount          uint32     // vehicles.seat_count
	CreatedAt          time.Time  // vehicles.created_at
	UpdatedAt          time.Time  // vehicles.updated_at
}

// VehicleSeat is one entry of a vehicle's fixed seat map, created once
// at registration time.  Seat numbers are positive and unique per
// vehicle.
//
// Fields:
//  ID        – primary key identifier.
//  VehicleID – vehicle this seat belongs to.
//  SeatNo    – seat number within the vehicle (1-based).
type VehicleSeat struct {
	ID        uint64 // vehicle_seats.id
	VehicleID uint64 // vehicle_seats.vehicle_id
	SeatNo    uint32 // vehicle_seats.seat_no
}

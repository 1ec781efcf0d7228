package model

import "time"

// Route is the ordered stop sequence served by a vehicle together with
// an encoded polyline derived from the stop coordinates.  A vehicle
// has at most one active route: registering a route for a vehicle that
// already has one replaces its stops and polyline in place.
//
// Fields:
//  ID         – primary key identifier.
//  VehicleID  – vehicle serving this route (unique).
//  Name       – human readable route name.
//  StartPoint – name of the first stop.
//  EndPoint   – name of the last stop.
//  Polyline   – Google encoded polyline over the stop coordinates.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Route struct {
	ID         uint64    // routes.id
	VehicleID  uint64    // routes.vehicle_id
	Name       string    // routes.name
	StartPoint string    // routes.start_point
	EndPoint   string    // routes.end_point
	Polyline   string    // routes.polyline
	CreatedAt  time.Time // routes.created_at
	UpdatedAt  time.Time // routes.updated_at
}

// Stop is a named geographic point shared between routes.  Stops are
// deduplicated by name when a route is created.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique stop name.
//  Latitude  – WGS84 latitude.
//  Longitude – WGS84 longitude.
type Stop struct {
	ID        uint64  // stops.id
	Name      string  // stops.name
	Latitude  float64 // stops.latitude
	Longitude float64 // stops.longitude
}

// RouteStop links a stop into a route at a given position.
//
// Fields:
//  RouteID  – route the stop belongs to.
//  StopID   – the stop itself.
//  Sequence – 1-based position along the route.
type RouteStop struct {
	RouteID  uint64 // route_stops.route_id
	StopID   uint64 // route_stops.stop_id
	Sequence uint32 // route_stops.sequence
}

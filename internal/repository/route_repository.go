package repository

import (
	"context"
	"database/sql"

	"github.com/merobus/merobus-backend/internal/model"
)

// RouteRepo provides access to routes, stops and the route_stops link
// table. A vehicle has at most one route; saving again replaces the
// stop sequence and polyline instead of creating a duplicate.
type RouteRepo struct {
	db *sql.DB
}

// NewRouteRepo returns a RouteRepo bound to the given database.
func NewRouteRepo(db *sql.DB) *RouteRepo { return &RouteRepo{db: db} }

// RouteDetail is a route together with its ordered stops, as served to
// clients browsing or searching routes.
type RouteDetail struct {
	Route model.Route
	Stops []model.Stop
}

// Save creates or replaces the route for route.VehicleID in a single
// transaction. Stops are deduplicated by name: an existing stop with
// the same name is reused, otherwise a new stop row is inserted. The
// previous stop sequence, if any, is discarded.
func (r *RouteRepo) Save(ctx context.Context, route *model.Route, stops []model.Stop) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existingID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM routes WHERE vehicle_id = ?`, route.VehicleID).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO routes (vehicle_id, name, start_point, end_point, polyline) VALUES (?,?,?,?,?)`,
			route.VehicleID, route.Name, route.StartPoint, route.EndPoint, route.Polyline)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		route.ID = uint64(id)
	case err != nil:
		return err
	default:
		route.ID = existingID
		if _, err := tx.ExecContext(ctx,
			`UPDATE routes SET name=?, start_point=?, end_point=?, polyline=? WHERE id=?`,
			route.Name, route.StartPoint, route.EndPoint, route.Polyline, route.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM route_stops WHERE route_id = ?`, route.ID); err != nil {
			return err
		}
	}

	for i := range stops {
		stop := &stops[i]
		err := tx.QueryRowContext(ctx,
			`SELECT id, latitude, longitude FROM stops WHERE name = ?`, stop.Name).
			Scan(&stop.ID, &stop.Latitude, &stop.Longitude)
		if err == sql.ErrNoRows {
			res, insErr := tx.ExecContext(ctx,
				`INSERT INTO stops (name, latitude, longitude) VALUES (?,?,?)`,
				stop.Name, stop.Latitude, stop.Longitude)
			if insErr != nil {
				return insErr
			}
			id, idErr := res.LastInsertId()
			if idErr != nil {
				return idErr
			}
			stop.ID = uint64(id)
		} else if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO route_stops (route_id, stop_id, sequence) VALUES (?,?,?)`,
			route.ID, stop.ID, i+1); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByVehicle returns the route and ordered stops for a vehicle.
// ErrRouteNotFound is returned when the vehicle has no route.
func (r *RouteRepo) GetByVehicle(ctx context.Context, vehicleID uint64) (*RouteDetail, error) {
	const q = `SELECT id, vehicle_id, name, start_point, end_point, polyline, created_at, updated_at
	           FROM routes WHERE vehicle_id = ?`
	var d RouteDetail
	err := r.db.QueryRowContext(ctx, q, vehicleID).Scan(
		&d.Route.ID, &d.Route.VehicleID, &d.Route.Name, &d.Route.StartPoint,
		&d.Route.EndPoint, &d.Route.Polyline, &d.Route.CreatedAt, &d.Route.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}
	stops, err := r.stopsForRoute(ctx, d.Route.ID)
	if err != nil {
		return nil, err
	}
	d.Stops = stops
	return &d, nil
}

// ListAll returns every route with its ordered stops. Used by the
// route proximity search, which needs all polylines.
func (r *RouteRepo) ListAll(ctx context.Context) ([]RouteDetail, error) {
	const q = `SELECT id, vehicle_id, name, start_point, end_point, polyline, created_at, updated_at
	           FROM routes ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]RouteDetail, 0)
	for rows.Next() {
		var d RouteDetail
		if err := rows.Scan(&d.Route.ID, &d.Route.VehicleID, &d.Route.Name,
			&d.Route.StartPoint, &d.Route.EndPoint, &d.Route.Polyline,
			&d.Route.CreatedAt, &d.Route.UpdatedAt); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range details {
		stops, err := r.stopsForRoute(ctx, details[i].Route.ID)
		if err != nil {
			return nil, err
		}
		details[i].Stops = stops
	}
	return details, nil
}

func (r *RouteRepo) stopsForRoute(ctx context.Context, routeID uint64) ([]model.Stop, error) {
	const q = `SELECT s.id, s.name, s.latitude, s.longitude
	           FROM route_stops rs
	           JOIN stops s ON s.id = rs.stop_id
	           WHERE rs.route_id = ?
	           ORDER BY rs.sequence`
	rows, err := r.db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stops := make([]model.Stop, 0)
	for rows.Next() {
		var s model.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

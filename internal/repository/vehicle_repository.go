package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/merobus/merobus-backend/internal/model"
)

// VehicleRepo provides access to vehicles and their fixed seat maps.
// The seat map is created once at registration and never changes
// afterwards; bookings validate seat membership against it.
type VehicleRepo struct {
	db *sql.DB
}

// NewVehicleRepo returns a VehicleRepo bound to the given database.
func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span multiple repositories.
func (r *VehicleRepo) DB() *sql.DB { return r.db }

// Create registers a vehicle and its seat map (seats 1..SeatCount) in
// one transaction. On success the vehicle's ID is populated. A
// duplicate plate number yields ErrPlateExists.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
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
	res, err := tx.ExecContext(ctx,
		`INSERT INTO vehicles (owner_id, plate_no, model, vehicle_type, scheduled_departure, scheduled_arrival, seat_count)
		 VALUES (?,?,?,?,?,?,?)`,
		v.OwnerID, v.PlateNo, v.Model, v.VehicleType, v.ScheduledDeparture.UTC(), v.ScheduledArrival.UTC(), v.SeatCount)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrPlateExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	if v.SeatCount > 0 {
		query := `INSERT INTO vehicle_seats (vehicle_id, seat_no) VALUES `
		args := make([]interface{}, 0, v.SeatCount*2)
		for n := uint32(1); n <= v.SeatCount; n++ {
			if n > 1 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, v.ID, n)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches a single vehicle. Returns ErrVehicleNotFound when no
// row exists.
func (r *VehicleRepo) GetByID(ctx context.Context, id uint64) (*model.Vehicle, error) {
	const q = `SELECT id, owner_id, plate_no, model, vehicle_type,
	                  scheduled_departure, scheduled_arrival,
	                  actual_departure, actual_arrival,
	                  timing_category, seat_count, created_at, updated_at
	           FROM vehicles WHERE id = ?`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// List returns all registered vehicles.
func (r *VehicleRepo) List(ctx context.Context) ([]model.Vehicle, error) {
	const q = `SELECT id, owner_id, plate_no, model, vehicle_type,
	                  scheduled_departure, scheduled_arrival,
	                  actual_departure, actual_arrival,
	                  timing_category, seat_count, created_at, updated_at
	           FROM vehicles ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// SeatMap returns the seat numbers registered for a vehicle in
// ascending order. An empty slice with nil error means the vehicle
// exists but has no seats; ErrVehicleNotFound means no such vehicle.
func (r *VehicleRepo) SeatMap(ctx context.Context, vehicleID uint64) ([]uint32, error) {
	var exists uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE id = ?`, vehicleID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_no FROM vehicle_seats WHERE vehicle_id = ? ORDER BY seat_no`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]uint32, 0)
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}

// SetActualDeparture stamps the trip start time. Re-stamping an
// already started trip overwrites the previous value.
func (r *VehicleRepo) SetActualDeparture(ctx context.Context, vehicleID uint64, t time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET actual_departure = ? WHERE id = ?`, t.UTC(), vehicleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is 0 both for a missing row and for an identical
		// timestamp; distinguish with a lookup.
		if _, err := r.GetByID(ctx, vehicleID); err != nil {
			return err
		}
	}
	return nil
}

// SetActualArrivalTx stamps the trip end time inside an existing
// transaction and returns the vehicle with all four timestamps, which
// the caller needs to classify the trip.
func (r *VehicleRepo) SetActualArrivalTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, t time.Time) (*model.Vehicle, error) {
	if _, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET actual_arrival = ? WHERE id = ?`, t.UTC(), vehicleID); err != nil {
		return nil, err
	}
	const q = `SELECT id, owner_id, plate_no, model, vehicle_type,
	                  scheduled_departure, scheduled_arrival,
	                  actual_departure, actual_arrival,
	                  timing_category, seat_count, created_at, updated_at
	           FROM vehicles WHERE id = ?`
	v, err := scanVehicle(tx.QueryRowContext(ctx, q, vehicleID))
	if err == sql.ErrNoRows {
		return nil, ErrVehicleNotFound
	}
	return v, err
}

// SetTimingCategoryTx writes the dominant timing category onto the
// vehicle within an existing transaction.
func (r *VehicleRepo) SetTimingCategoryTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, category string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE vehicles SET timing_category = ? WHERE id = ?`, category, vehicleID)
	return err
}

// rowScanner lets scanVehicle work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVehicle(row rowScanner) (*model.Vehicle, error) {
	var (
		v          model.Vehicle
		actualDep  sql.NullTime
		actualArr  sql.NullTime
		timingCat  sql.NullString
	)
	err := row.Scan(&v.ID, &v.OwnerID, &v.PlateNo, &v.Model, &v.VehicleType,
		&v.ScheduledDeparture, &v.ScheduledArrival,
		&actualDep, &actualArr,
		&timingCat, &v.SeatCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if actualDep.Valid {
		t := actualDep.Time
		v.ActualDeparture = &t
	}
	if actualArr.Valid {
		t := actualArr.Time
		v.ActualArrival = &t
	}
	if timingCat.Valid {
		v.TimingCategory = timingCat.String
	}
	return &v, nil
}

package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/merobus/merobus-backend/internal/model"
)

// BookingRepo provides access to bookings and their seat claims and
// implements the seat ledger: the atomic verify-and-claim of seat
// numbers for a (vehicle, service date) pair.
//
// Two layers enforce the no-double-booking invariant. The claim
// transaction runs at SERIALIZABLE isolation and re-reads existing
// claims with a locking SELECT, which catches conflicts early enough
// to name the exact seats. Behind that sits the UNIQUE key on
// (vehicle_id, service_date, seat_no): even if two transactions pass
// the read check concurrently, the second writer's commit violates
// the key and the claim fails. The application check is a fast path
// for a friendly error; the constraint is the actual guarantee.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// transactions spanning multiple repositories.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// TryClaim atomically claims b.SeatNos on b.VehicleID for the service
// day of b.ServiceDate and persists the booking row (status PENDING)
// together with one booked_seats row per seat. On success the booking
// is returned with its ID, normalized service date and timestamps
// populated. No partial writes survive a failure.
//
// Errors: ErrVehicleNotFound for an unknown vehicle, UnknownSeatsError
// for seats outside the vehicle's seat map (both detected before the
// claim transaction opens), SeatConflictError when any requested seat
// is already claimed for that day.
func (r *BookingRepo) TryClaim(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	seats := dedupeSeats(b.SeatNos)
	if len(seats) == 0 {
		return nil, ErrNoSeats
	}
	day := model.ServiceDay(b.ServiceDate)

	if err := r.checkSeatMap(ctx, b.VehicleID, seats); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	taken, err := r.claimedSeatsTx(ctx, tx, b.VehicleID, day, seats)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, &SeatConflictError{Seats: taken}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (vehicle_id, rider_id, service_date, pickup_point, dropoff_point, total_fare_paisa, status)
		 VALUES (?,?,?,?,?,?,?)`,
		b.VehicleID, b.RiderID, day, b.PickupPoint, b.DropoffPoint, b.TotalFare, model.BookingPending)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)

	query := `INSERT INTO booked_seats (booking_id, vehicle_id, service_date, seat_no) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, n := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ID, b.VehicleID, day, n)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			// Lost the race after the read check. The winner has
			// committed by the time the key fires, so a fresh read
			// recovers the exact seats that were contested.
			return nil, &SeatConflictError{Seats: r.recoverConflicts(ctx, b.VehicleID, day, seats)}
		}
		return nil, err
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).
		Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isDuplicateKey(err) {
			return nil, &SeatConflictError{Seats: r.recoverConflicts(ctx, b.VehicleID, day, seats)}
		}
		return nil, err
	}
	committed = true

	b.ServiceDate = day
	b.SeatNos = seats
	b.Status = model.BookingPending
	return b, nil
}

// checkSeatMap validates that every requested seat exists on the
// vehicle. Runs outside the claim transaction: a bad request should
// never open one.
func (r *BookingRepo) checkSeatMap(ctx context.Context, vehicleID uint64, seats []uint32) error {
	var exists uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM vehicles WHERE id = ?`, vehicleID).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrVehicleNotFound
	}
	if err != nil {
		return err
	}
	query := `SELECT seat_no FROM vehicle_seats WHERE vehicle_id = ? AND seat_no IN (` + placeholders(len(seats)) + `)`
	args := make([]interface{}, 0, len(seats)+1)
	args = append(args, vehicleID)
	for _, n := range seats {
		args = append(args, n)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	known := make(map[uint32]struct{}, len(seats))
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return err
		}
		known[n] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	var unknown []uint32
	for _, n := range seats {
		if _, ok := known[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return &UnknownSeatsError{Seats: unknown}
	}
	return nil
}

// claimedSeatsTx returns which of the requested seats already carry a
// claim for the (vehicle, day) pair. The SELECT ... FOR UPDATE locks
// the matching index range for the duration of the transaction.
func (r *BookingRepo) claimedSeatsTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, day time.Time, seats []uint32) ([]uint32, error) {
	query := `SELECT seat_no FROM booked_seats
	          WHERE vehicle_id = ? AND service_date = ? AND seat_no IN (` + placeholders(len(seats)) + `)
	          FOR UPDATE`
	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, vehicleID, day)
	for _, n := range seats {
		args = append(args, n)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		taken = append(taken, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(taken, func(i, j int) bool { return taken[i] < taken[j] })
	return taken, nil
}

// recoverConflicts re-reads the claims that beat a lost race, outside
// the failed transaction, so the conflict error can name the exact
// seats. Falls back to the whole request when the re-read itself fails.
func (r *BookingRepo) recoverConflicts(ctx context.Context, vehicleID uint64, day time.Time, seats []uint32) []uint32 {
	query := `SELECT seat_no FROM booked_seats
	          WHERE vehicle_id = ? AND service_date = ? AND seat_no IN (` + placeholders(len(seats)) + `)`
	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, vehicleID, day)
	for _, n := range seats {
		args = append(args, n)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return seats
	}
	defer rows.Close()
	var taken []uint32
	for rows.Next() {
		var n uint32
		if err := rows.Scan(&n); err != nil {
			return seats
		}
		taken = append(taken, n)
	}
	if rows.Err() != nil {
		return seats
	}
	sort.Slice(taken, func(i, j int) bool { return taken[i] < taken[j] })
	return conflictSet(taken, seats)
}

// conflictSet picks what a SeatConflictError should name: the seats
// recovered from the winning claim, or the whole request when the
// recovery came back empty.
func conflictSet(recovered, requested []uint32) []uint32 {
	if len(recovered) == 0 {
		return requested
	}
	return recovered
}

// BookedSeats returns the seat numbers already claimed on a vehicle
// for the service day of date, ascending.
func (r *BookingRepo) BookedSeats(ctx context.Context, vehicleID uint64, date time.Time) ([]uint32, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_no FROM booked_seats WHERE vehicle_id = ? AND service_date = ? ORDER BY seat_no`,
		vehicleID, model.ServiceDay(date))
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

// ReleaseSeatsTx deletes the seat claims of a booking, releasing them
// for rebooking. Used by cancellation within an existing transaction.
func (r *BookingRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, bookingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM booked_seats WHERE booking_id = ?`, bookingID)
	return err
}

// Cancel flips a booking to CANCELLED and deletes its seat claims in
// one transaction, so the seats become bookable again the instant the
// cancellation is visible.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID uint64) error {
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
	if err := r.SetStatusTx(ctx, tx, bookingID, model.BookingCancelled); err != nil {
		return err
	}
	if err := r.ReleaseSeatsTx(ctx, tx, bookingID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetStatus updates a booking's status. ErrBookingNotFound when no
// row matches.
func (r *BookingRepo) SetStatus(ctx context.Context, bookingID uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, status, bookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, bookingID); err != nil {
			return err
		}
	}
	return nil
}

// SetStatusTx is SetStatus within an existing transaction.
func (r *BookingRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, bookingID uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, bookingID)
	return err
}

// GetByID returns a booking with its seat numbers populated.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT id, vehicle_id, rider_id, service_date, pickup_point, dropoff_point,
	                  total_fare_paisa, status, created_at, updated_at
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.VehicleID, &b.RiderID, &b.ServiceDate, &b.PickupPoint, &b.DropoffPoint,
		&b.TotalFare, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadSeats(ctx, []*model.Booking{&b}); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListByVehicle returns bookings for a vehicle, newest first.
func (r *BookingRepo) ListByVehicle(ctx context.Context, vehicleID uint64, page, perPage int) ([]model.Booking, error) {
	return r.list(ctx, `vehicle_id = ?`, []interface{}{vehicleID}, page, perPage)
}

// ListByRider returns a rider's bookings, newest first.
func (r *BookingRepo) ListByRider(ctx context.Context, riderID uint64, page, perPage int) ([]model.Booking, error) {
	return r.list(ctx, `rider_id = ?`, []interface{}{riderID}, page, perPage)
}

// ListByVehicleAndDate returns bookings on a vehicle for one service
// day, newest first.
func (r *BookingRepo) ListByVehicleAndDate(ctx context.Context, vehicleID uint64, date time.Time, page, perPage int) ([]model.Booking, error) {
	return r.list(ctx, `vehicle_id = ? AND service_date = ?`,
		[]interface{}{vehicleID, model.ServiceDay(date)}, page, perPage)
}

// ListByDate returns bookings for a service day, newest first. The
// timestamp is normalized to its UTC day before matching.
func (r *BookingRepo) ListByDate(ctx context.Context, date time.Time, page, perPage int) ([]model.Booking, error) {
	return r.list(ctx, `service_date = ?`, []interface{}{model.ServiceDay(date)}, page, perPage)
}

func (r *BookingRepo) list(ctx context.Context, where string, args []interface{}, page, perPage int) ([]model.Booking, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	q := `SELECT id, vehicle_id, rider_id, service_date, pickup_point, dropoff_point,
	             total_fare_paisa, status, created_at, updated_at
	      FROM bookings WHERE ` + where + `
	      ORDER BY created_at DESC, id DESC
	      LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.VehicleID, &b.RiderID, &b.ServiceDate,
			&b.PickupPoint, &b.DropoffPoint, &b.TotalFare, &b.Status,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	refs := make([]*model.Booking, len(bookings))
	for i := range bookings {
		refs[i] = &bookings[i]
	}
	if err := r.loadSeats(ctx, refs); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadSeats populates SeatNos for the given bookings in one query.
func (r *BookingRepo) loadSeats(ctx context.Context, bookings []*model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Booking, len(bookings))
	args := make([]interface{}, 0, len(bookings))
	for _, b := range bookings {
		index[b.ID] = b
		args = append(args, b.ID)
	}
	q := `SELECT booking_id, seat_no FROM booked_seats
	      WHERE booking_id IN (` + placeholders(len(bookings)) + `)
	      ORDER BY booking_id, seat_no`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			bid uint64
			n   uint32
		)
		if err := rows.Scan(&bid, &n); err != nil {
			return err
		}
		if b, ok := index[bid]; ok {
			b.SeatNos = append(b.SeatNos, n)
		}
	}
	return rows.Err()
}

// dedupeSeats drops duplicates, returning seats in ascending order.
// Zero stays in so that the seat map check rejects it as unknown
// instead of it vanishing from the request.
func dedupeSeats(seats []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(seats))
	out := make([]uint32, 0, len(seats))
	for _, n := range seats {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

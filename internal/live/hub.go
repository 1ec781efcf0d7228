// Package live tracks which users and vehicles are currently connected
// over websockets and fans events out to interested connections.
package live

import (
	"log/slog"
	"sync"
	"time"
)

// sender is the subset of *websocket.Conn the hub needs. Tests plug in
// fakes.
type sender interface {
	WriteJSON(v interface{}) error
}

// Event is the wire shape for every message the hub pushes.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// VehicleStatus is the hub's view of one tracked vehicle.
type VehicleStatus struct {
	VehicleID uint64    `json:"vehicleId"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updatedAt"`
	Active    bool      `json:"active"`
}

type userSession struct {
	conn     sender
	watching map[uint64]struct{}
}

type vehicleState struct {
	lat     float64
	lng     float64
	updated time.Time
	active  bool
	conn    sender
}

// Hub is the in-memory presence registry. All methods are safe for
// concurrent use. Connections are registered by user or vehicle id; a
// second login for the same id replaces the previous connection.
type Hub struct {
	mu       sync.Mutex
	users    map[uint64]*userSession
	vehicles map[uint64]*vehicleState
	logger   *slog.Logger

	onConnect    func()
	onDisconnect func()
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		users:    make(map[uint64]*userSession),
		vehicles: make(map[uint64]*vehicleState),
		logger:   logger,
	}
}

// SetConnectionHooks registers callbacks fired on every user login and
// disconnect, used to keep gauges in step with the session maps.
func (h *Hub) SetConnectionHooks(onConnect, onDisconnect func()) {
	h.onConnect = onConnect
	h.onDisconnect = onDisconnect
}

// Login registers a user connection. An existing session for the same
// user is replaced.
func (h *Hub) Login(userID uint64, conn sender) {
	h.mu.Lock()
	_, replaced := h.users[userID]
	h.users[userID] = &userSession{conn: conn, watching: make(map[uint64]struct{})}
	h.mu.Unlock()
	if !replaced && h.onConnect != nil {
		h.onConnect()
	}
	h.logger.Info("user online", "user_id", userID, "replaced", replaced)
}

// Disconnect removes a user session. Calling it for a user that is not
// logged in is a no-op, so connection close handlers can call it
// unconditionally.
func (h *Hub) Disconnect(userID uint64) {
	h.mu.Lock()
	_, ok := h.users[userID]
	delete(h.users, userID)
	h.mu.Unlock()
	if !ok {
		return
	}
	if h.onDisconnect != nil {
		h.onDisconnect()
	}
	h.logger.Info("user offline", "user_id", userID)
}

// Online reports whether the user currently has a session.
func (h *Hub) Online(userID uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.users[userID]
	return ok
}

// Push delivers an event to one user, best effort. Returns false when
// the user is offline or the write fails; a failed write tears the
// session down.
func (h *Hub) Push(userID uint64, ev Event) bool {
	h.mu.Lock()
	s, ok := h.users[userID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	if err := s.conn.WriteJSON(ev); err != nil {
		h.logger.Warn("push failed, dropping session", "user_id", userID, "error", err)
		h.Disconnect(userID)
		return false
	}
	return true
}

// RegisterVehicle marks a vehicle as actively broadcasting its
// position over the given connection.
func (h *Hub) RegisterVehicle(vehicleID uint64, conn sender) {
	h.mu.Lock()
	st, ok := h.vehicles[vehicleID]
	if !ok {
		st = &vehicleState{}
		h.vehicles[vehicleID] = st
	}
	st.active = true
	st.conn = conn
	h.mu.Unlock()
	h.logger.Info("vehicle online", "vehicle_id", vehicleID)
}

// UnregisterVehicle marks the vehicle inactive. Its last position is
// kept so late watchers still see where it went quiet. A vehicle id
// the hub has never seen is ignored.
func (h *Hub) UnregisterVehicle(vehicleID uint64) {
	h.mu.Lock()
	st, ok := h.vehicles[vehicleID]
	if ok {
		st.active = false
		st.conn = nil
	}
	h.mu.Unlock()
	if ok {
		h.logger.Info("vehicle offline", "vehicle_id", vehicleID)
	}
}

// RecordLocation updates a vehicle's position and broadcasts it to
// every user watching that vehicle. Updates for vehicles that never
// registered are silently dropped.
func (h *Hub) RecordLocation(vehicleID uint64, lat, lng float64) {
	now := time.Now().UTC()
	h.mu.Lock()
	st, ok := h.vehicles[vehicleID]
	if !ok {
		h.mu.Unlock()
		return
	}
	st.lat, st.lng, st.updated = lat, lng, now
	status := VehicleStatus{VehicleID: vehicleID, Lat: lat, Lng: lng, UpdatedAt: now, Active: st.active}
	var targets []uint64
	var conns []sender
	for uid, s := range h.users {
		if _, watching := s.watching[vehicleID]; watching {
			targets = append(targets, uid)
			conns = append(conns, s.conn)
		}
	}
	h.mu.Unlock()

	ev := Event{Type: "vehicle_location", Payload: status}
	for i, c := range conns {
		if err := c.WriteJSON(ev); err != nil {
			h.Disconnect(targets[i])
		}
	}
}

// Watch subscribes a logged-in user to a vehicle's location stream.
// Returns false when the user has no session.
func (h *Hub) Watch(userID, vehicleID uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.users[userID]
	if !ok {
		return false
	}
	s.watching[vehicleID] = struct{}{}
	return true
}

// Unwatch removes a vehicle subscription; unknown users or vehicles
// are ignored.
func (h *Hub) Unwatch(userID, vehicleID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.users[userID]; ok {
		delete(s.watching, vehicleID)
	}
}

// ActiveVehicles returns the current status of every vehicle that is
// actively broadcasting, in unspecified order.
func (h *Hub) ActiveVehicles() []VehicleStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]VehicleStatus, 0, len(h.vehicles))
	for id, st := range h.vehicles {
		if !st.active {
			continue
		}
		out = append(out, VehicleStatus{
			VehicleID: id, Lat: st.lat, Lng: st.lng, UpdatedAt: st.updated, Active: true,
		})
	}
	return out
}
